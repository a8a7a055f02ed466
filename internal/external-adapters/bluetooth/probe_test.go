package bluetooth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeScanner reports a fixed set of advertisers, then blocks until stopped
type fakeScanner struct {
	addresses []string
	enableErr error
	scanErr   error

	mu      sync.Mutex
	stopped chan struct{}
	enables int
}

func newFakeScanner(addresses ...string) *fakeScanner {
	return &fakeScanner{addresses: addresses}
}

func (f *fakeScanner) Enable() error {
	f.enables++
	return f.enableErr
}

func (f *fakeScanner) Scan(onAddress func(address string)) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	f.mu.Lock()
	f.stopped = make(chan struct{})
	stopped := f.stopped
	f.mu.Unlock()

	for _, address := range f.addresses {
		onAddress(address)
	}
	<-stopped
	return nil
}

func (f *fakeScanner) StopScan() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped != nil {
		select {
		case <-f.stopped:
		default:
			close(f.stopped)
		}
	}
	return nil
}

func TestProbe_IsAvailable(t *testing.T) {
	tests := []struct {
		name      string
		addresses []string
		want      bool
	}{
		{name: "target advertising", addresses: []string{"11:22:33:44:55:66", "aa:bb:cc:dd:ee:ff"}, want: true},
		{name: "target silent", addresses: []string{"11:22:33:44:55:66"}, want: false},
		{name: "nothing around", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := newProbe(newFakeScanner(tt.addresses...), 100*time.Millisecond, nil)

			got, err := probe.IsAvailable(context.Background(), "AA:BB:CC:DD:EE:FF")
			if err != nil {
				t.Fatalf("IsAvailable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAvailable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbe_IsAvailable_StopsEarlyOnMatch(t *testing.T) {
	probe := newProbe(newFakeScanner("AA:BB:CC:DD:EE:FF"), time.Minute, nil)

	start := time.Now()
	if ok, err := probe.IsAvailable(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil || !ok {
		t.Fatalf("IsAvailable() = %v, %v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("IsAvailable() took %v, want the scan stopped on first sighting", elapsed)
	}
}

func TestProbe_IsAvailable_EnablesOnce(t *testing.T) {
	fake := newFakeScanner()
	probe := newProbe(fake, 10*time.Millisecond, nil)

	for i := 0; i < 3; i++ {
		if _, err := probe.IsAvailable(context.Background(), "AA:BB:CC:DD:EE:FF"); err != nil {
			t.Fatal(err)
		}
	}
	if fake.enables != 1 {
		t.Errorf("Enable() called %d times, want 1", fake.enables)
	}
}

func TestProbe_IsAvailable_Errors(t *testing.T) {
	enableFails := newFakeScanner()
	enableFails.enableErr = errors.New("no adapter")
	if _, err := newProbe(enableFails, time.Second, nil).IsAvailable(context.Background(), "AA:BB:CC:DD:EE:FF"); err == nil {
		t.Error("IsAvailable() should fail when the adapter cannot be enabled")
	}

	scanFails := newFakeScanner()
	scanFails.scanErr = errors.New("busy")
	if _, err := newProbe(scanFails, time.Second, nil).IsAvailable(context.Background(), "AA:BB:CC:DD:EE:FF"); err == nil {
		t.Error("IsAvailable() should fail when the scan fails")
	}
}

func TestProbe_IsAvailable_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := newProbe(newFakeScanner(), time.Minute, nil).IsAvailable(ctx, "AA:BB:CC:DD:EE:FF")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("IsAvailable() error = %v, want context.Canceled", err)
	}
}
