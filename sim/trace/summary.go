package trace

// HostSummary aggregates the records of one host.
type HostSummary struct {
	Instructions int
	CPUTicks     int
	TotalCost    float64
	SentSize     float64
}

// TraceSummary aggregates statistics from an ExecutionTrace.
type TraceSummary struct {
	TotalInstructions int
	TotalCPUTicks     int
	Epochs            int
	UniqueHosts       int
	KindDistribution  map[string]int // instruction kind → count
	Hosts             map[string]*HostSummary
}

// Summarize computes aggregate statistics from an ExecutionTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *ExecutionTrace) *TraceSummary {
	summary := &TraceSummary{
		KindDistribution: make(map[string]int),
		Hosts:            make(map[string]*HostSummary),
	}
	if t == nil {
		return summary
	}

	summary.TotalInstructions = len(t.Instructions)
	summary.Epochs = len(t.Epochs)
	for _, r := range t.Instructions {
		summary.KindDistribution[r.Kind]++
		hs, ok := summary.Hosts[r.Host]
		if !ok {
			hs = &HostSummary{}
			summary.Hosts[r.Host] = hs
		}
		hs.Instructions++
		if r.ConsumesCPU {
			hs.CPUTicks++
			summary.TotalCPUTicks++
		}
		if r.HasCost {
			hs.TotalCost += r.Cost
		}
		if r.HasSize {
			hs.SentSize += r.Size
		}
	}
	summary.UniqueHosts = len(summary.Hosts)

	return summary
}
