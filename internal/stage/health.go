package stage

import "context"

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// CheckAll reports the health of every stage in pipeline order.
func CheckAll(ctx context.Context, deps Deps) []Health {
	out := make([]Health, 0, len(Names()))
	for _, name := range Names() {
		h, err := New(name, deps)
		if err != nil {
			out = append(out, Unhealthy(string(name), err.Error()))
			continue
		}
		out = append(out, h.HealthCheck(ctx))
	}
	return out
}
