// booking-sim drives a local booking-service: it mints signed test tokens,
// books a slot, proposes a reschedule, checks gRPC health and tails the
// booking events the service publishes to Kafka.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/auth"
	"github.com/md-rashed-zaman/slotwise/libs/config"
	"github.com/md-rashed-zaman/slotwise/libs/grpcx"
	"github.com/md-rashed-zaman/slotwise/libs/kafkax"
	"github.com/md-rashed-zaman/slotwise/libs/runtime"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	var (
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:8083"), "booking-service base url")
		grpcAddr = flag.String("grpc-addr", config.String("GRPC_ADDR", "localhost:9083"), "booking-service grpc address")
		mode     = flag.String("mode", "book", "book | reschedule | health | watch")
		brokers  = flag.String("brokers", config.String("KAFKA_BROKERS", "localhost:9092"), "kafka brokers for watch")
		business = flag.String("business-id", config.String("BUSINESS_ID", ""), "business id")
		service  = flag.String("service-id", config.String("SERVICE_ID", ""), "service id")
		start    = flag.String("start", "", "start time, RFC3339")
		apptID   = flag.String("appointment-id", "", "appointment to reschedule")
		role     = flag.String("role", "client", "client | merchant")
		subject  = flag.String("subject", "sim-client", "token subject")
		secret   = flag.String("secret", config.String("JWT_SECRET", ""), "HS256 signing secret")
	)
	flag.Parse()

	switch *mode {
	case "health":
		if err := probe(*grpcAddr); err != nil {
			fatal(err.Error())
		}
		fmt.Println("status=SERVING")
		return
	case "watch":
		ctx, stop := runtime.SignalContext(context.Background())
		defer stop()
		if err := watch(ctx, kafkax.SplitBrokers(*brokers), config.List("SIM_TOPICS", strings.Join(bookingTopics, ","))); err != nil {
			fatal(err.Error())
		}
		return
	case "book", "reschedule":
	default:
		fatal("unknown mode " + *mode)
	}

	if strings.TrimSpace(*secret) == "" {
		fatal("JWT_SECRET is required")
	}
	if _, err := time.Parse(time.RFC3339, *start); err != nil {
		fatal("start must be RFC3339")
	}
	token, err := auth.SignHS256(auth.NewClaims(*subject, *role, *business, 10*time.Minute), *secret)
	if err != nil {
		fatal(err.Error())
	}

	path, body := "/api/v1/public/book", map[string]string{
		"business_id": *business,
		"service_id":  *service,
		"start_time":  *start,
	}
	if *mode == "reschedule" {
		if strings.TrimSpace(*apptID) == "" {
			fatal("appointment-id is required")
		}
		path, body = "/api/v1/appointments/reschedule", map[string]string{
			"appointment_id": *apptID,
			"start_time":     *start,
			"justification":  "sent by booking-sim",
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	fmt.Printf("status=%d body=%s\n", resp.StatusCode, bytes.TrimSpace(out))
}

func probe(addr string) error {
	conn, err := grpcx.Dial(addr, grpcx.DialOptions{})
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := grpcx.Probe(context.Background(), conn, "booking.v1.BookingService", 5*time.Second)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", st)
	}
	return nil
}

var bookingTopics = []string{
	"booking.appointment.booked.v1",
	"booking.appointment.confirmed.v1",
	"booking.appointment.cancelled.v1",
	"booking.appointment.completed.v1",
	"booking.reschedule.proposed.v1",
	"booking.reschedule.accepted.v1",
	"booking.reschedule.rejected.v1",
}

// watch prints every booking event until ctx is cancelled.
func watch(ctx context.Context, brokers, topics []string) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     "booking-sim",
		GroupTopics: topics,
		StartOffset: kafka.LastOffset,
		MaxWait:     time.Second,
	})
	defer r.Close()

	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		meta := kafkax.ExtractEventMeta(msg)
		traceID := trace.SpanContextFromContext(kafkax.ExtractTraceContext(ctx, msg)).TraceID()
		fmt.Printf("event=%s id=%s appointment=%s trace=%s payload=%s\n",
			meta.EventType, meta.EventID, meta.AggregateID, traceID, bytes.TrimSpace(msg.Value))
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
