package gateways

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/sbleedy/internal/domain/entities"
)

// mockHardwareRepo serves a fixed profile list
type mockHardwareRepo struct {
	profiles []*entities.HardwareProfile
	err      error
	calls    int
}

func (m *mockHardwareRepo) ListHardware(_ context.Context) ([]*entities.HardwareProfile, error) {
	m.calls++
	return m.profiles, m.err
}

func TestHardwareRegistry_VerifyCachesAndMutatesPort(t *testing.T) {
	hci := &entities.HardwareProfile{Name: "hci", Kind: entities.HardwareHCI, NeedsSetupVerification: true}
	repo := &mockHardwareRepo{profiles: []*entities.HardwareProfile{hci}}
	verifier := &stubVerifier{port: "hci0"}

	registry := NewHardwareRegistry(repo, verifier, nil, nil)
	for i := 0; i < 3; i++ {
		status := registry.Verify(context.Background(), "hci")
		if !status.Available || status.Port != "hci0" {
			t.Fatalf("Verify() = %+v", status)
		}
	}

	if verifier.calls != 1 || repo.calls != 1 {
		t.Errorf("verifier called %d times, repo %d times, want 1 each", verifier.calls, repo.calls)
	}
	if hci.Port != "hci0" {
		t.Errorf("profile port = %q, want hci0 written in place", hci.Port)
	}
}

func TestHardwareRegistry_VerifyAll(t *testing.T) {
	repo := &mockHardwareRepo{profiles: []*entities.HardwareProfile{
		{Name: "hci", NeedsSetupVerification: true},
		{Name: "nRF52840", NeedsSetupVerification: true},
	}}
	verifier := &stubVerifier{err: errors.New("no device")}

	statuses, err := NewHardwareRegistry(repo, verifier, nil, nil).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll() error = %v", err)
	}

	want := []entities.HardwareStatus{
		{Name: "hci", Reason: "no device"},
		{Name: "nRF52840", Reason: "no device"},
	}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("VerifyAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestHardwareRegistry_OverridesAndPorts(t *testing.T) {
	nrf := &entities.HardwareProfile{Name: "nRF52840", Kind: entities.HardwareNRF52840}
	repo := &mockHardwareRepo{profiles: []*entities.HardwareProfile{nrf}}

	registry := NewHardwareRegistry(repo, NewKindVerifier(nil), map[string]string{"nRF52840": "/dev/ttyACM3"}, nil)

	available := registry.Available(context.Background(), []string{"nRF52840", "ubertooth"})
	if diff := cmp.Diff(map[string]bool{"nRF52840": true, "ubertooth": false}, available); diff != "" {
		t.Errorf("Available() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"nRF52840": "/dev/ttyACM3"}, registry.Ports()); diff != "" {
		t.Errorf("Ports() mismatch (-want +got):\n%s", diff)
	}
}

func TestHardwareRegistry_RepositoryError(t *testing.T) {
	repo := &mockHardwareRepo{err: errors.New("bad yaml")}
	registry := NewHardwareRegistry(repo, NewKindVerifier(nil), nil, nil)

	if _, err := registry.VerifyAll(context.Background()); err == nil {
		t.Error("VerifyAll() should fail when profiles cannot be loaded")
	}
	if status := registry.Verify(context.Background(), "hci"); status.Available {
		t.Error("Verify() should report unavailable when profiles cannot be loaded")
	}
}
