package datadog

import (
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"csvclean/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("expected error for empty Addr")
	}
}

func TestLabelsToTags(t *testing.T) {
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("nil labels: got %v", got)
	}
	got := labelsToTags(metrics.Labels{"step": "dedupe", "job": "j1", "status": "success"})
	want := []string{"job:j1", "status:success", "step:dedupe"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

/*
TestBackend_SendsOverUDP verifies that counters reach a DogStatsD listener
with the namespace prefix and label tags once the backend is flushed.
*/
func TestBackend_SendsOverUDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}
	defer conn.Close()

	b, err := NewBackend(Config{Addr: conn.LocalAddr().String(), Namespace: "csvclean."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "trim_whitespace"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("no packet with the step counter received: %v", err)
		}
		pkt := string(buf[:n])
		if strings.Contains(pkt, "csvclean."+metrics.StepTotal+":1|c") {
			if !strings.Contains(pkt, "step:trim_whitespace") {
				t.Fatalf("missing tag in %q", pkt)
			}
			return
		}
	}
}
