package app

import (
	"testing"
)

func TestCreateOutboxWorker_NilProducer(t *testing.T) {
	deps := NewDependencies(newMemoryStorage(t), nil)

	worker := createOutboxWorker(DefaultConfig(), deps, nil)
	if worker != nil {
		t.Error("expected nil worker without kafka producer")
	}
}
