package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/config"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/git"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store/sqlite"
)

// openEngine opens the local store and wraps it in an engine. The caller must
// invoke the returned closer when done.
func openEngine(cmd *cobra.Command) (*engine.Engine, func(), error) {
	home := config.MustHomeFrom(cmd.Context())
	st, err := sqlite.Open(home)
	if err != nil {
		return nil, nil, err
	}
	eng := engine.New(st)
	eng.VCS = git.New()
	return eng, func() { _ = st.Close() }, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
