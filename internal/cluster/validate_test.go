package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

func TestValidate(t *testing.T) {
	t.Run("accepts 3, 5, 7 replicas", func(t *testing.T) {
		for _, n := range []int{3, 5, 7} {
			err := Validate(mdbv1.MongoClusterSpec{Replicas: n})
			assert.NoError(t, err)
		}
	})

	t.Run("rejects even or out-of-range replica counts", func(t *testing.T) {
		for _, n := range []int{0, 1, 2, 4, 6, 8, 9} {
			err := Validate(mdbv1.MongoClusterSpec{Replicas: n})
			assert.Error(t, err)
		}
	})

	t.Run("rejects unparsable resource strings", func(t *testing.T) {
		err := Validate(mdbv1.MongoClusterSpec{Replicas: 3, CPULimit: "not-a-quantity"})
		assert.Error(t, err)
	})

	t.Run("empty resource strings are allowed, defaulting happens elsewhere", func(t *testing.T) {
		err := Validate(mdbv1.MongoClusterSpec{Replicas: 3})
		assert.NoError(t, err)
	})
}

func TestKeyString(t *testing.T) {
	k := Key{Name: "mdb", Namespace: "prod"}
	assert.Equal(t, "prod/mdb", k.String())
}
