package memory

import (
	"testing"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/stores/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.DesignStore {
		return NewStore()
	})
}
