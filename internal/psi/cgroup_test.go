package psi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractContainerID(t *testing.T) {
	path := "/sys/fs/cgroup/kubepods.slice/kubepods-burstable.slice/kubepods-burstable-pod123.slice/" +
		"cri-containerd-e4063920952d766348421832d2df465324397166164478852332152342342342.scope/cpu.pressure"

	id, ok := ExtractContainerID(path)
	if !ok {
		t.Fatal("expected a container id")
	}
	want := "e4063920952d766348421832d2df465324397166164478852332152342342342"
	if id != want {
		t.Errorf("id = %q, want %q", id, want)
	}
}

func TestExtractContainerIDRejectsShortNames(t *testing.T) {
	if _, ok := ExtractContainerID("/sys/fs/cgroup/kubepods.slice/cpu.pressure"); ok {
		t.Error("expected no container id for a non-container cgroup directory")
	}
}

func TestFindPressureFilesMatchesKubepodsOnly(t *testing.T) {
	root := t.TempDir()
	kubeDir := filepath.Join(root, "kubepods.slice", "pod-abc.scope")
	otherDir := filepath.Join(root, "system.slice", "sshd.service")
	if err := os.MkdirAll(kubeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(otherDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(kubeDir, "cpu.pressure"), []byte("some total=0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(otherDir, "cpu.pressure"), []byte("some total=0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	found := FindPressureFiles(root)
	if len(found) != 1 || filepath.Dir(found[0]) != kubeDir {
		t.Errorf("got %v, want exactly the kubepods cpu.pressure file", found)
	}
}
