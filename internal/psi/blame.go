package psi

import (
	"math"
	"sort"
	"strings"
)

// maxForkCountForFullScore and maxShortJobCountForFullScore are the
// denominators spec §4.6 fixes for fork_score/short_score saturation.
const (
	maxForkCountForFullScore     = 100
	maxShortJobCountForFullScore = 50
)

type offenderAgg struct {
	pod, namespace   string
	cpuPercent       float64
	forkCount        uint64
	shortJobCount    uint64
}

// ComputeBlame attributes a StallEvent's stall across the union of its
// concurrent CPU consumers, recent forkers, and short-job pods, per spec
// §4.6: blame = (cpu_share + fork_score + short_score) * stall_seconds.
// Zero-blame offenders are omitted; the result is sorted blame descending.
func ComputeBlame(event StallEvent) []BlameAttribution {
	offenders := make(map[string]*offenderAgg)

	get := func(key, pod, namespace string) *offenderAgg {
		a, ok := offenders[key]
		if !ok {
			a = &offenderAgg{pod: pod, namespace: namespace}
			offenders[key] = a
		}
		return a
	}

	var totalCPU float64
	for _, c := range event.ConcurrentConsumers {
		key := c.Namespace + "/" + c.Pod
		get(key, c.Pod, c.Namespace).cpuPercent += c.CPUPercent
		totalCPU += c.CPUPercent
	}
	for key, count := range event.ForkCounts {
		ns, pod := splitPodKey(key)
		get(key, pod, ns).forkCount = count
	}
	for key, count := range event.ShortJobCounts {
		ns, pod := splitPodKey(key)
		get(key, pod, ns).shortJobCount = count
	}

	stallSeconds := float64(event.StallDeltaUs) / 1_000_000.0

	attrs := make([]BlameAttribution, 0, len(offenders))
	for _, a := range offenders {
		var cpuShare float64
		if totalCPU > 0 {
			cpuShare = a.cpuPercent / totalCPU
		}
		forkScore := math.Min(float64(a.forkCount)/maxForkCountForFullScore, 1.0)
		shortScore := math.Min(float64(a.shortJobCount)/maxShortJobCountForFullScore, 1.0)
		blame := (cpuShare + forkScore + shortScore) * stallSeconds
		if blame == 0 {
			continue
		}
		attrs = append(attrs, BlameAttribution{
			VictimPod:         event.VictimPod,
			VictimNamespace:   event.VictimNamespace,
			OffenderPod:       a.pod,
			OffenderNamespace: a.namespace,
			BlameScore:        blame,
			StallUs:           event.StallDeltaUs,
			TimestampUnix:     event.TimestampUnix,
			CPUShare:          cpuShare,
			ForkCount:         a.forkCount,
			ShortJobCount:     a.shortJobCount,
		})
	}

	sort.Slice(attrs, func(i, j int) bool { return attrs[i].BlameScore > attrs[j].BlameScore })
	return attrs
}

func splitPodKey(key string) (namespace, pod string) {
	idx := strings.IndexByte(key, '/')
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}
