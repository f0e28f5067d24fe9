package configops

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/YspCoder/menuctl/pkg/config"
)

const pidFileName = "serve.pid"

// ErrServeNotRunning is returned by TriggerReload when no serve process
// has registered a pid file.
var ErrServeNotRunning = errors.New("menuctl serve is not running")

// pathAliases maps short CLI spellings to config keys.
var pathAliases = map[string]string{
	"token":         "line.channel_access_token",
	"access_token":  "line.channel_access_token",
	"retries":       "retry.max_retries",
	"port":          "gateway.port",
	"templates_dir": "templates.dir",
}

// LoadConfigAsMap reads the raw config file. A missing file yields the
// defaults so set can create it.
func LoadConfigAsMap(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		data, err = json.Marshal(config.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	var cfgMap map[string]interface{}
	if err := json.Unmarshal(data, &cfgMap); err != nil {
		return nil, err
	}
	return cfgMap, nil
}

func NormalizeConfigPath(path string) string {
	p := strings.Trim(strings.TrimSpace(path), ".")
	if alias, ok := pathAliases[strings.ToLower(p)]; ok {
		return alias
	}
	parts := strings.Split(p, ".")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "-", "_")
		if part == "enable" {
			part = "enabled"
		}
		parts[i] = part
	}
	return strings.Join(parts, ".")
}

// ParseConfigValue turns CLI text into a JSON value. Comma-separated text
// becomes a string list, which is how allowed_sizes and friends are set.
func ParseConfigValue(raw string) interface{} {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && strings.Contains(v, ".") {
		return f
	}
	if len(v) >= 2 && ((v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'')) {
		return v[1 : len(v)-1]
	}
	if strings.HasPrefix(v, "[") {
		var list []interface{}
		if err := json.Unmarshal([]byte(v), &list); err == nil {
			return list
		}
	}
	if strings.Contains(v, ",") {
		items := []interface{}{}
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return v
}

func SetMapValueByPath(root map[string]interface{}, path string, value interface{}) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	parts := strings.Split(path, ".")
	cur := root
	for _, key := range parts[:len(parts)-1] {
		if key == "" {
			return fmt.Errorf("invalid path: %s", path)
		}
		next, ok := cur[key]
		if !ok {
			child := map[string]interface{}{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]interface{})
		if !ok {
			return fmt.Errorf("path segment is not object: %s", key)
		}
		cur = child
	}
	last := parts[len(parts)-1]
	if last == "" {
		return fmt.Errorf("invalid path: %s", path)
	}
	cur[last] = value
	return nil
}

func GetMapValueByPath(root map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var cur interface{} = root
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// CheckConfigData parses data the way LoadConfig would and runs Validate, so
// a set that produces an unloadable file is refused before it is written.
func CheckConfigData(data []byte) error {
	dir, err := os.MkdirTemp("", "menuctl-config-check")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WriteConfigAtomicWithBackup replaces configPath with data, keeping the
// previous contents in configPath+".bak". The file stays owner-only since it
// may hold the channel access token.
func WriteConfigAtomicWithBackup(configPath string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return "", err
	}

	backupPath := configPath + ".bak"
	if oldData, err := os.ReadFile(configPath); err == nil {
		if err := os.WriteFile(backupPath, oldData, 0600); err != nil {
			return "", fmt.Errorf("write backup failed: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read existing config failed: %w", err)
	}

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return "", fmt.Errorf("write temp config failed: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("atomic replace config failed: %w", err)
	}
	return backupPath, nil
}

func RollbackConfigFromBackup(configPath, backupPath string) error {
	backupData, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("read backup failed: %w", err)
	}
	tmpPath := configPath + ".rollback.tmp"
	if err := os.WriteFile(tmpPath, backupData, 0600); err != nil {
		return fmt.Errorf("write rollback temp failed: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rollback replace failed: %w", err)
	}
	return nil
}

func PIDFilePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), pidFileName)
}

func WritePIDFile(configPath string) error {
	path := PIDFilePath(configPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func RemovePIDFile(configPath string) {
	_ = os.Remove(PIDFilePath(configPath))
}

// TriggerReload sends SIGHUP to the serve process registered next to
// configPath. The bool reports whether a process was found at all.
func TriggerReload(configPath string) (bool, error) {
	pidPath := PIDFilePath(configPath)
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return false, fmt.Errorf("%w (pid file not found: %s)", ErrServeNotRunning, pidPath)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return true, fmt.Errorf("invalid serve pid: %q", pidStr)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return true, fmt.Errorf("find process failed: %w", err)
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return true, fmt.Errorf("send SIGHUP failed: %w", err)
	}
	return true, nil
}
