package muid_test

import (
	"testing"

	"github.com/aidarkhanov/nanoid/v2"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/airena/hfsm/muid"
)

func BenchmarkMUID(b *testing.B) {
	for b.Loop() {
		_ = muid.Make()
	}
}

func BenchmarkMUIDString(b *testing.B) {
	for b.Loop() {
		_ = muid.MakeString()
	}
}

func BenchmarkMUIDParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = muid.Make()
		}
	})
}

func BenchmarkUUIDv4(b *testing.B) {
	for b.Loop() {
		_ = uuid.New()
	}
}

func BenchmarkUUIDv7(b *testing.B) {
	for b.Loop() {
		_, _ = uuid.NewV7()
	}
}

func BenchmarkULID(b *testing.B) {
	for b.Loop() {
		_ = ulid.Make()
	}
}

func BenchmarkNanoID(b *testing.B) {
	for b.Loop() {
		_, _ = nanoid.GenerateString("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz", 21)
	}
}
