package submission

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")
	partial := &PartialUploadError{UniverseID: 3, Failed: []*UploadError{{Key: "3/isin.csv", Field: FieldISIN, Err: cause}}}

	assert.Equal(t, KindValidation, KindOf(&ValidationError{Fields: []string{"cusip"}}))
	assert.Equal(t, KindPersistence, KindOf(fmt.Errorf("wrapped: %w", &PersistenceError{Reason: ReasonConnectivity, Err: cause})))
	assert.Equal(t, KindUpload, KindOf(&UploadError{Key: "3/isin.csv", Err: cause}))
	assert.Equal(t, KindPartialUpload, KindOf(partial))
	assert.Equal(t, Kind(""), KindOf(cause))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsValidation(&ValidationError{}))
	assert.True(t, IsPersistence(fmt.Errorf("x: %w", &PersistenceError{Err: errors.New("down")})))
	assert.True(t, IsPartialUpload(&PartialUploadError{}))
	assert.False(t, IsPartialUpload(&PersistenceError{Err: errors.New("down")}))
}

func TestErrorMessages(t *testing.T) {
	err := &PartialUploadError{UniverseID: 42, Failed: []*UploadError{
		{Key: "42/cusip.csv", Err: errors.New("timeout")},
	}}
	assert.Equal(t, "partial upload for universe 42: failed 42/cusip.csv", err.Error())
	assert.Equal(t, "validation: required: cusip, isin", (&ValidationError{Fields: []string{"cusip", "isin"}}).Error())

	var up *UploadError
	assert.True(t, errors.As(err, &up))
	assert.Equal(t, "42/cusip.csv", up.Key)
}
