package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions() *Options {
	return &Options{
		URL:            "http://test.com",
		PagePrecision:  2,
		MaxConcurrency: 10,
	}
}

func TestValidate(t *testing.T) {
	opts := validOptions()
	assert.Nil(t, opts.Validate())

	opts.URL = "not a url"
	assert.NotNil(t, opts.Validate())

	opts = validOptions()
	opts.PagePrecision = 0
	assert.NotNil(t, opts.Validate())

	opts = validOptions()
	opts.MaxConcurrency = 0
	assert.NotNil(t, opts.Validate())
}

func TestRedundancySnapshotRestore(t *testing.T) {
	opts := validOptions()
	opts.Redundancy = map[string]int{"calendar": 3}

	snapshot := opts.RedundancySnapshot()
	opts.Redundancy["calendar"] = 0

	opts.RestoreRedundancy(snapshot)
	assert.Equal(t, 3, opts.Redundancy["calendar"])
}

func TestCopyIsIndependent(t *testing.T) {
	opts := validOptions()
	opts.Checks = []string{"*"}
	opts.Redundancy = map[string]int{"logout": 1}
	opts.Reports = map[string]string{"json": "out.json"}

	c := opts.Copy()
	require.Equal(t, opts.URL, c.URL)

	c.Checks[0] = "none"
	c.Redundancy["logout"] = 9
	c.Reports["json"] = "elsewhere"

	assert.Equal(t, "*", opts.Checks[0])
	assert.Equal(t, 1, opts.Redundancy["logout"])
	assert.Equal(t, "out.json", opts.Reports["json"])
}
