package memory_test

import (
	"testing"

	"github.com/nearwallets/selector/pkg/adapters/memory"
	"github.com/nearwallets/selector/pkg/ports/tests"
)

func TestMemoryStorage_Contract(t *testing.T) {
	tests.RunStorageContract(t, memory.NewStorage())
}
