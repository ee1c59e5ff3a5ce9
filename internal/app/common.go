package app

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wsltools/vhdm/internal/backup"
	"github.com/wsltools/vhdm/internal/blockdev"
	"github.com/wsltools/vhdm/internal/config"
	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/tracking"
)

// env bundles everything a command needs: settings loaded once, the
// tracking store, the live device observer, and the (optional) operation
// journal. Commands build one env at the top of RunE and pass values down;
// no global mutable state beyond the cobra flag variables.
type env struct {
	settings config.Settings
	aliases  *config.AliasConfig
	dbPath   string
	store    *tracking.Store
	observer blockdev.Observer
	journal  *journal.Journal
}

// newEnv loads configuration and opens the tracking store. The journal is
// best-effort: a failure to open it is logged and commands proceed without
// one.
func newEnv() (*env, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	resolvedDBPath, err := settings.ResolveDatabasePath(dbPath)
	if err != nil {
		return nil, err
	}

	store := tracking.New(resolvedDBPath, settings.DetachHistoryMax)
	if err := store.Init(); err != nil {
		return nil, err
	}

	e := &env{
		settings: settings,
		aliases:  &config.AliasConfig{Aliases: map[string]string{}},
		dbPath:   resolvedDBPath,
		store:    store,
		observer: blockdev.NewExecObserver(),
	}

	if cfgDir, err := config.Dir(); err == nil {
		if aliases, err := config.LoadAliases(cfgDir); err == nil {
			e.aliases = aliases
		} else {
			log.Warn().Err(err).Msg("failed to load aliases")
		}
	}

	journalPath, err := settings.ResolveJournalPath()
	if err == nil {
		e.journal, err = journal.Open(journalPath)
	}
	if err != nil {
		log.Warn().Err(err).Msg("operation journal unavailable")
	}

	return e, nil
}

// backupManager returns a snapshot manager for the tracking database.
func (e *env) backupManager() (*backup.Manager, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	return backup.New(e.dbPath, filepath.Join(dir, "backups")), nil
}

// snapshotBeforeMutation backs up the tracking database before a
// destructive command rewrites it. Best-effort: a failed snapshot is
// logged, not fatal, because the operation itself is what the user asked
// for.
func (e *env) snapshotBeforeMutation(reason string) {
	m, err := e.backupManager()
	if err == nil {
		_, err = m.Create(reason)
	}
	if err != nil {
		log.Warn().Err(err).Str("reason", reason).Msg("failed to snapshot tracking database")
		return
	}
	if _, err := m.Prune(backup.DefaultKeep); err != nil {
		log.Warn().Err(err).Msg("failed to prune old snapshots")
	}
}

// resolvePath expands a user-defined alias into its VHD path. Arguments
// that are not aliases pass through unchanged.
func (e *env) resolvePath(arg string) string {
	return e.aliases.Resolve(arg)
}

// close releases the journal handle.
func (e *env) close() {
	if e.journal != nil {
		e.journal.Close()
	}
}

// record journals an operation. Journal failures are logged, never
// returned: forensics must not fail the operation they describe.
func (e *env) record(op, path, uuid, deviceName, detail string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(op, path, uuid, deviceName, detail); err != nil {
		log.Warn().Err(err).Str("op", op).Msg("failed to journal operation")
	}
}

// confirm prompts the user with a yes/no question and returns their
// answer. Used by destructive commands; --force skips it.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// dedupe returns values with duplicates removed, preserving order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
