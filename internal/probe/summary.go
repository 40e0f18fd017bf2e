package probe

import "sort"

// HostCount is the number of failed probes against one host.
type HostCount struct {
	Host  string
	Count int
}

// Summary aggregates a batch of results.
type Summary struct {
	Total   int
	Working int
	Failed  int
	// SuccessRate is the percentage of reachable URLs, 0 for an empty batch.
	SuccessRate    float64
	FailuresByHost []HostCount
}

// Summarize counts working and failed results and groups failures by host, most failures first.
func Summarize(results []Result) Summary {
	summary := Summary{Total: len(results)}
	byHost := make(map[string]int)

	for _, result := range results {
		if result.Reachable {
			summary.Working++
			continue
		}
		summary.Failed++
		byHost[result.Host()]++
	}

	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Working) / float64(summary.Total) * 100
	}

	for host, count := range byHost {
		summary.FailuresByHost = append(summary.FailuresByHost, HostCount{Host: host, Count: count})
	}
	sort.Slice(summary.FailuresByHost, func(i, j int) bool {
		a, b := summary.FailuresByHost[i], summary.FailuresByHost[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Host < b.Host
	})

	return summary
}

// Failed returns the unreachable results, in the order given.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Reachable {
			failed = append(failed, result)
		}
	}
	return failed
}
