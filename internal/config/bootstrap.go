package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// defaultYAML is written on first run when no packaged default config is
// available next to the binary.
const defaultYAML = `app:
  port: 38510

crawl:
  site_budget_seconds: 5
  request_timeout_seconds: 3
  concurrency: 4
  inter_site_delay_ms: 500
  per_host_rps: 1.0
  per_host_burst: 2

progress:
  ttl_minutes: 30
  sweep_seconds: 60

websites:
  - name: "中国政府采购网"
    url: "www.ccgp.gov.cn"
    category: "procurement"
    status: "active"
  - name: "中国采购与招标网"
    url: "www.chinabidding.cn"
    category: "bidding"
    status: "active"
  - name: "中国招标投标公共服务平台"
    url: "www.cpir.cn"
    category: "bidding"
    status: "active"
`

// EnsureUserConfig materializes the user-editable config file in dataDir.
// An existing file is left untouched; otherwise defaultPath is copied in,
// falling back to the built-in default when no packaged file exists.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	src, err := os.Open(defaultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := os.WriteFile(userPath, []byte(defaultYAML), 0o644); werr != nil {
				return "", werr
			}
			return userPath, nil
		}
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return userPath, nil
}
