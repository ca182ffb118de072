package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaValidate(t *testing.T) {
	type testCase struct {
		description string
		meta        ResourceMeta
		expError    bool
	}

	testCases := []testCase{
		{
			description: "valid meta",
			meta: ResourceMeta{
				Name:        "test-optimizer",
				Cluster:     "test-cluster",
				Description: "test-description",
			},
			expError: false,
		},
		{
			description: "meta missing cluster",
			meta: ResourceMeta{
				Name: "test-optimizer",
			},
			expError: true,
		},
		{
			description: "empty meta",
			meta:        ResourceMeta{},
			expError:    true,
		},
	}

	for _, testCase := range testCases {
		err := testCase.meta.Validate()
		if testCase.expError {
			assert.Error(t, err, testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
	}
}
