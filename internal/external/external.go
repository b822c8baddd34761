// Package external documents the collaborators this daemon talks to but
// does not implement: the Kubernetes pod-metadata resolver, the incident
// archive, notification sinks, and LLM-based incident summarization. Per
// spec §1 these are deliberately out of scope; only their interface shape
// is specified here, grounded on the original's k8s.rs K8sContext and
// storage.rs traits.
package external

// PodMetadata is the immutable, shared record a PodMetadataResolver
// attaches to a process once its container is known. Cheap to clone by
// reference (callers share a single instance across every ProcessEntry
// that resolves to the same pod).
type PodMetadata struct {
	Namespace string
	PodName   string
	Priority  int32
}

// PodMetadataResolver maps container/PID identity to Kubernetes pod
// metadata. Implementations talk to the kubelet or API server; none is
// provided here.
type PodMetadataResolver interface {
	MetadataForContainer(containerID string) (PodMetadata, bool)
	MetadataForPID(pid uint32) (PodMetadata, bool)
}
