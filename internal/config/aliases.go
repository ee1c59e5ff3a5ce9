package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AliasConfig holds the alias-to-path mappings declared by the user.
// Each key is the alias name (as given on the command line) and the value
// is the full Windows path of the VHD file it stands for. Aliases save
// typing paths like C:\Users\me\VMs\build-cache.vhdx on every command.
type AliasConfig struct {
	Aliases map[string]string
}

// LoadAliases reads the aliases file at {dir}/aliases and returns the parsed
// config. If the file does not exist, an empty config is returned without an
// error. Invalid or malformed lines are silently skipped.
func LoadAliases(dir string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		Aliases: make(map[string]string),
	}

	path := filepath.Join(dir, "aliases")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Expect exactly one "=" separating alias from path.
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue // no "=" or "=" is first character — invalid, skip
		}

		alias := strings.TrimSpace(line[:idx])
		vhd := strings.TrimSpace(line[idx+1:])

		if alias == "" || vhd == "" {
			continue // either side is blank — invalid, skip
		}

		cfg.Aliases[alias] = vhd
	}

	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Resolve maps an alias to its VHD path. Names that are not aliases come
// back unchanged, so callers can pass every path argument through it.
func (c *AliasConfig) Resolve(name string) string {
	if vhd, ok := c.Aliases[name]; ok {
		return vhd
	}
	return name
}
