package device

import (
	"context"
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry pre-populated with n devices.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		module := "hue"
		if i%3 == 0 {
			module = "zigbee"
		}
		d, err := New(fmt.Sprintf("dev-%04d", i), fmt.Sprintf("Device %d", i), KindLightDimmer, module)
		if err != nil {
			b.Fatalf("creating device %d: %v", i, err)
		}
		if _, err := reg.Save(ctx, d); err != nil {
			b.Fatalf("saving device %d: %v", i, err)
		}
	}
	return reg
}

func BenchmarkRegistryGet(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Get("dev-0050")
	}
}

func BenchmarkRegistryGet_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.Get("dev-0050")
		}
	})
}

func BenchmarkRegistryByModule(b *testing.B) {
	reg := setupBenchRegistry(b, 300)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ByModule("zigbee")
	}
}

func BenchmarkDeviceSetState_WithListeners(b *testing.B) {
	d, err := New("bench", "Bench", KindLightDimmer, "")
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		d.AddListener(Listener{
			Key:      fmt.Sprintf("action-%d", i),
			Event:    "onBrightnessGreater(int)",
			Params:   []any{i * 10},
			Callback: func(any) {},
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.SetState("brightness", i%100)
	}
}
