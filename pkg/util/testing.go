package util

import (
	"fmt"
	"math/rand"
	"os"
	"testing"
)

// TestZKAddr returns the zookeeper address used by integration tests, and whether one was
// configured via GOALCTL_TEST_ZK_ADDR.
func TestZKAddr() (string, bool) {
	return lookupNonEmpty("GOALCTL_TEST_ZK_ADDR")
}

// TestKafkaAddr returns the kafka bootstrap address used by integration tests, and whether one
// was configured via GOALCTL_TEST_KAFKA_ADDR.
func TestKafkaAddr() (string, bool) {
	return lookupNonEmpty("GOALCTL_TEST_KAFKA_ADDR")
}

// RequireZK skips the current test unless a test zookeeper is configured.
func RequireZK(t *testing.T) string {
	addr, ok := TestZKAddr()
	if !ok {
		t.Skip("Skipping because GOALCTL_TEST_ZK_ADDR is not set")
	}
	return addr
}

// RequireKafka skips the current test unless a test kafka cluster is configured.
func RequireKafka(t *testing.T) string {
	addr, ok := TestKafkaAddr()
	if !ok {
		t.Skip("Skipping because GOALCTL_TEST_KAFKA_ADDR is not set")
	}
	return addr
}

func lookupNonEmpty(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// RandomString returns a random string with the argument prefix and length.
func RandomString(prefix string, length int) string {
	b := make([]rune, length)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("%s-%s", prefix, string(b))
}
