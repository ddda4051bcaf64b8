package flagx

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type options struct {
	Config    string        `flag:"config,c" usage:"settings file" default:"cache.yaml"`
	Workers   int           `flag:"workers" default:"4"`
	Remote    bool          `flag:"require-remote"`
	Timeout   time.Duration `flag:"timeout" default:"30s"`
	Tags      []string      `flag:"tags"`
	Namespace string        `flag:"namespace" required:"true"`
	ignored   string        `flag:"ignored"`
	Plain     string
}

func TestBindAndParse(t *testing.T) {
	var opts options
	cmd := &cobra.Command{Use: "x", RunE: func(cmd *cobra.Command, args []string) error {
		return Parse(cmd, &opts)
	}}
	require.NoError(t, Bind(cmd, &opts))

	cmd.SetArgs([]string{"-c", "other.yaml", "--require-remote", "--timeout", "5s",
		"--tags", "a,b", "--namespace", "users"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "other.yaml", opts.Config)
	assert.Equal(t, 4, opts.Workers)
	assert.True(t, opts.Remote)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, []string{"a", "b"}, opts.Tags)
	assert.Equal(t, "users", opts.Namespace)
	assert.Empty(t, opts.ignored)
	assert.Nil(t, cmd.Flags().Lookup("ignored"))

	usage := cmd.Flags().Lookup("config")
	require.NotNil(t, usage)
	assert.Equal(t, "settings file", usage.Usage)
	assert.Equal(t, "c", usage.Shorthand)
}

func TestBind_Required(t *testing.T) {
	var opts options
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	require.NoError(t, Bind(cmd, &opts))
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "namespace")
}

func TestBind_Errors(t *testing.T) {
	cmd := &cobra.Command{}
	var s string
	assert.ErrorContains(t, Bind(cmd, &s), "pointer to struct")
	assert.ErrorContains(t, Parse(cmd, options{}), "pointer to struct")

	var bad struct {
		Ratio float64 `flag:"ratio"`
	}
	assert.ErrorContains(t, Bind(cmd, &bad), "unsupported")

	var badDefault struct {
		Timeout time.Duration `flag:"timeout" default:"soon"`
	}
	assert.ErrorContains(t, Bind(&cobra.Command{}, &badDefault), "bad default")
}

func TestBindPersistent(t *testing.T) {
	var global struct {
		Config string `flag:"config" default:"a.yaml"`
	}
	var got string
	root := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child", RunE: func(cmd *cobra.Command, args []string) error {
		if err := Parse(cmd, &global); err != nil {
			return err
		}
		got = global.Config
		return nil
	}}
	root.AddCommand(child)
	require.NoError(t, BindPersistent(root, &global))

	root.SetArgs([]string{"child", "--config", "b.yaml"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "b.yaml", got)
}
