package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("folder_url", "  ", Required).
		Field("namespace", "bad namespace!", Namespace).
		Field("top_k", 0, IntRange(1, 50))

	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.ErrorIs(t, v.Error(), ErrValidation)
	assert.Contains(t, v.ErrorMessage(), "namespace")

	ok := NewValidator().
		Field("folder_url", "https://drive.google.com/drive/folders/abc", Required, MaxLength(2048)).
		Field("namespace", "default-384", Namespace).
		Field("job_id", "7f0e5c1e-2b1f-4a77-9a3c-8f4a3f0c9d11", UUID)
	assert.NoError(t, ok.Error())
}
