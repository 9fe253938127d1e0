package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNoopDiscardsEverything(t *testing.T) {
	var sink Sink = Noop{}
	sink.IncCounter("anything", "label")
	sink.AddGauge("anything", 5, "label")
	sink.SetGauge("anything", 5, "label")
}

func TestPromIncCounterRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("pulsar_test", reg, "class")

	p.IncCounter("widgets_total", "echo")
	p.IncCounter("widgets_total", "echo")
	p.IncCounter("widgets_total", "other")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var found *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "pulsar_test_widgets_total" {
			found = f
		}
	}
	if found == nil {
		t.Fatalf("expected pulsar_test_widgets_total to be registered")
	}

	var echoValue float64
	for _, m := range found.Metric {
		for _, lp := range m.Label {
			if lp.GetName() == "class" && lp.GetValue() == "echo" {
				echoValue = m.Counter.GetValue()
			}
		}
	}
	if echoValue != 2 {
		t.Fatalf("expected echo counter at 2, got %v", echoValue)
	}
}

func TestPromSetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("pulsar_test", reg, "class")

	p.SetGauge("size", 3, "echo")
	p.SetGauge("size", 7, "echo")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "pulsar_test_size" {
			found = true
			for _, m := range f.Metric {
				if m.Gauge.GetValue() != 7 {
					t.Fatalf("expected last SetGauge to win, got %v", m.Gauge.GetValue())
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected pulsar_test_size to be registered")
	}
}
