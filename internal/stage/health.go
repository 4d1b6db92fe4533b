package stage

// Health summarizes the readiness of a workflow stage.
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

// Summary renders the record as a single log-friendly line.
func (h Health) Summary() string {
	if h.Ready {
		return h.Name + ": ok"
	}
	if h.Detail == "" {
		return h.Name + ": not ready"
	}
	return h.Name + ": " + h.Detail
}
