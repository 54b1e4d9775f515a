package memory_test

import (
	"testing"

	"github.com/aretw0/domaindetect/pkg/adapters/memory"
	"github.com/aretw0/domaindetect/pkg/ports"
)

func TestCache_Contract(t *testing.T) {
	ports.RunHitCacheContract(t, memory.NewCache())
}
