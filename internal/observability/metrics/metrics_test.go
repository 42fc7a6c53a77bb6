package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilReceiversAreSafe(t *testing.T) {
	var s *SchedulerMetrics
	s.ObserveSlotsGenerated(3)
	s.ObserveFreeBusyFailure()

	var c *ConversationMetrics
	c.ObserveTurn("book", "slots", 0.1)

	var b *BookingMetrics
	b.ObserveOutcome("booked")

	var n *NotifyMetrics
	n.ObserveSend("email", "ok")
}

func TestRegistersOnDedicatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSchedulerMetrics(reg).ObserveSlotsGenerated(2)
	NewConversationMetrics(reg).ObserveTurn("pay", "action", 0.05)
	NewBookingMetrics(reg).ObserveOutcome("failed")
	NewNotifyMetrics(reg).ObserveSend("email", "error")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}
