package jsvm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// versionTag marks the renderer version in a script's leading comment block.
const versionTag = "@version"

// ScriptVersionInfo compares a renderer script on disk with the embedded one.
type ScriptVersionInfo struct {
	Path            string `json:"path"`
	LocalVersion    string `json:"local_version"` // empty when missing or untagged
	EmbedVersion    string `json:"embed_version"`
	UpdateAvailable bool   `json:"update_available"`
}

// UpgradeResult describes a renderer upgrade.
type UpgradeResult struct {
	Path       string `json:"path"`
	OldVersion string `json:"old_version"`
	NewVersion string `json:"new_version"`
	BackupPath string `json:"backup_path,omitempty"`
	Upgraded   bool   `json:"upgraded"`
}

// ScriptVersion reads the version tag from the leading comment lines of a
// renderer script. It returns "" when the script has none.
func ScriptVersion(src string) string {
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "//") {
			break
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))
		if v, ok := strings.CutPrefix(line, versionTag); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// DefaultVersion is the version of the embedded renderer.
func DefaultVersion() string {
	return ScriptVersion(DefaultScript)
}

// CheckScript compares the script at path with the embedded renderer. A
// missing or untagged script always has an update available.
func CheckScript(path string) (*ScriptVersionInfo, error) {
	info := &ScriptVersionInfo{Path: path, EmbedVersion: DefaultVersion()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		info.UpdateAvailable = true
		return info, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read renderer: %w", err)
	}

	info.LocalVersion = ScriptVersion(string(data))
	if info.LocalVersion == "" {
		info.UpdateAvailable = true
		return info, nil
	}

	newer, err := compareVersions(info.EmbedVersion, info.LocalVersion)
	if err != nil {
		return nil, err
	}
	info.UpdateAvailable = newer
	return info, nil
}

// compareVersions returns true if embedVer > localVer.
func compareVersions(embedVer, localVer string) (bool, error) {
	embedV, err := semver.NewVersion(embedVer)
	if err != nil {
		return false, fmt.Errorf("invalid embed version %s: %w", embedVer, err)
	}
	localV, err := semver.NewVersion(localVer)
	if err != nil {
		return false, fmt.Errorf("invalid local version %s: %w", localVer, err)
	}
	return embedV.GreaterThan(localV), nil
}

// UpgradeScript replaces the script at path with the embedded renderer when
// the embedded one is newer, or unconditionally with force. An existing
// script is first copied next to itself with a timestamped .bak suffix.
func UpgradeScript(path string, force bool) (*UpgradeResult, error) {
	info, err := CheckScript(path)
	if err != nil && !force {
		return nil, err
	}
	res := &UpgradeResult{Path: path, NewVersion: DefaultVersion()}
	if info != nil {
		res.OldVersion = info.LocalVersion
		if !info.UpdateAvailable && !force {
			return res, nil
		}
	}

	if old, err := os.ReadFile(path); err == nil {
		res.BackupPath = fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102_150405"))
		if err := os.WriteFile(res.BackupPath, old, 0644); err != nil {
			return nil, fmt.Errorf("backup renderer: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultScript), 0644); err != nil {
		return nil, fmt.Errorf("write renderer: %w", err)
	}
	res.Upgraded = true
	return res, nil
}
