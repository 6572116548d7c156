package rnc

import (
	"testing"

	"github.com/Alonza0314/free-rnc/constant"
	"github.com/go-playground/assert/v2"
)

func TestTransactionIdGenerator(t *testing.T) {
	generator := NewTransactionIdGenerator()

	first := generator.AllocateTransactionId()
	second := generator.AllocateTransactionId()
	assert.Equal(t, uint32(1), first)
	assert.Equal(t, uint32(2), second)

	// released ids are reused only after the counter wraps
	generator.ReleaseTransactionId(first)
	assert.Equal(t, uint32(3), generator.AllocateTransactionId())
	assert.Equal(t, uint(2), generator.InUse())
}

func TestTransactionIdGeneratorExhaustion(t *testing.T) {
	generator := NewTransactionIdGenerator()
	for i := 0; i < constant.MAX_TRANSACTION_ID; i++ {
		assert.NotEqual(t, uint32(0), generator.AllocateTransactionId())
	}
	assert.Equal(t, uint32(0), generator.AllocateTransactionId())

	generator.ReleaseTransactionId(42)
	assert.Equal(t, uint32(42), generator.AllocateTransactionId())
}
