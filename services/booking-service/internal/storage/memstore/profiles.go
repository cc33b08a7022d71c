package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

// Profiles is an in-memory business-profile source.
type Profiles struct {
	mu        sync.RWMutex
	calendars map[string]calendar.WorkingHours
	services  map[string]model.Service
}

var _ booking.ProfileSource = (*Profiles)(nil)

func NewProfiles() *Profiles {
	return &Profiles{
		calendars: map[string]calendar.WorkingHours{},
		services:  map[string]model.Service{},
	}
}

func serviceKey(businessID, serviceID string) string {
	return businessID + "/" + serviceID
}

func (p *Profiles) SetWorkingHours(businessID string, cal calendar.WorkingHours) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calendars[businessID] = cal
}

// SetService registers an active service.
func (p *Profiles) SetService(businessID, serviceID string, durationMinutes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.services[serviceKey(businessID, serviceID)] = model.Service{
		ID:              serviceID,
		BusinessID:      businessID,
		Name:            serviceID,
		DurationMinutes: durationMinutes,
		Active:          true,
	}
}

func (p *Profiles) WorkingHours(_ context.Context, businessID string) (calendar.WorkingHours, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cal, ok := p.calendars[businessID]
	if !ok {
		return calendar.WorkingHours{}, fmt.Errorf("business %s: %w", businessID, booking.ErrNotFound)
	}
	return cal, nil
}

func (p *Profiles) PutWorkingHours(_ context.Context, businessID string, cal calendar.WorkingHours) error {
	p.SetWorkingHours(businessID, cal)
	return nil
}

func (p *Profiles) ServiceDuration(_ context.Context, businessID, serviceID string) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.services[serviceKey(businessID, serviceID)]
	if !ok || !s.Active {
		return 0, fmt.Errorf("service %s: %w", serviceID, booking.ErrNotFound)
	}
	return s.DurationMinutes, nil
}

// PutService requires working hours for the business, mirroring the
// foreign key the Postgres schema enforces.
func (p *Profiles) PutService(_ context.Context, svc model.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.calendars[svc.BusinessID]; !ok {
		return fmt.Errorf("business %s: %w", svc.BusinessID, booking.ErrNotFound)
	}
	p.services[serviceKey(svc.BusinessID, svc.ID)] = svc
	return nil
}

func (p *Profiles) ListServices(_ context.Context, businessID string) ([]model.Service, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []model.Service
	for _, s := range p.services {
		if s.BusinessID == businessID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
