package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		wantErr bool
	}{
		{name: "lowest level", level: 1, wantErr: false},
		{name: "middle level", level: 4, wantErr: false},
		{name: "highest level", level: 7, wantErr: false},
		{name: "zero", level: 0, wantErr: true},
		{name: "negative", level: -3, wantErr: true},
		{name: "above range", level: 8, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLevel(tt.level)
			if tt.wantErr {
				var verr ValidationError
				require.True(t, errors.As(err, &verr), "ValidateLevel(%d) should fail", tt.level)
				assert.Equal(t, "level", verr.Field)
				return
			}
			assert.NoError(t, err)
		})
	}
}

type sample struct {
	Name  string   `json:"name" validate:"required"`
	Level int      `json:"level" validate:"min=1,max=7"`
	Tags  []string `json:"tags" validate:"dive,required"`
}

func TestValidatorStruct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, v.Struct(sample{Name: "hsk", Level: 2, Tags: []string{"a"}}))
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := v.Struct(sample{Level: 9, Tags: []string{""}})

		var fields *FieldsError
		require.True(t, errors.As(err, &fields))
		require.Len(t, fields.Errors, 3)

		names := []string{fields.Errors[0].Field, fields.Errors[1].Field, fields.Errors[2].Field}
		assert.Equal(t, []string{"level", "name", "tags[0]"}, names)
		assert.Contains(t, fields.Errors[1].Message, "required")
	})

	t.Run("error string joins fields", func(t *testing.T) {
		err := v.Struct(sample{Level: 1})
		require.Error(t, err)
		assert.Equal(t, "name: name is a required field", err.Error())
	})
}
