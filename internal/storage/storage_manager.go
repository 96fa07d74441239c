package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"worklog-summary/internal/period"
)

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StorageManager 存储管理器，把生成的汇总写成 markdown 报告文件
type StorageManager struct {
	basePath string
}

// NewStorageManager 创建存储管理器
func NewStorageManager(basePath string) *StorageManager {
	return &StorageManager{
		basePath: basePath,
	}
}

// PathFor 计算汇总报告的相对路径
// <tenant>/<year>/week-NN.md, <tenant>/<year>/month-MM.md, <tenant>/<year>/custom-<start>_<end>.md
func (sm *StorageManager) PathFor(summary *Summary) (string, error) {
	tenant := sanitizeSegment(summary.Tenant)
	if tenant == "" {
		return "", fmt.Errorf("summary has no tenant")
	}

	var filename string
	switch summary.Type {
	case period.Weekly:
		filename = fmt.Sprintf("week-%02d.md", summary.WeekNumber)
	case period.Monthly:
		filename = fmt.Sprintf("month-%02d.md", summary.Month)
	case period.Custom:
		filename = fmt.Sprintf("custom-%s_%s.md",
			summary.StartDate.Format(period.DayLayout), summary.EndDate.Format(period.DayLayout))
	default:
		return "", fmt.Errorf("unsupported summary type: %s", summary.Type)
	}

	return filepath.Join(tenant, fmt.Sprintf("%d", summary.Year), filename), nil
}

// SaveSummary 保存汇总报告，返回相对路径
func (sm *StorageManager) SaveSummary(summary *Summary) (string, error) {
	if sm.basePath == "" {
		return "", fmt.Errorf("reports path not configured")
	}

	relativePath, err := sm.PathFor(summary)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(sm.basePath, relativePath)

	// 确保目录存在
	if err := sm.ensureDirectory(filepath.Dir(fullPath)); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	// 写入文件
	if err := os.WriteFile(fullPath, []byte(RenderMarkdown(summary)), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	return relativePath, nil
}

// RenderMarkdown 渲染报告文件内容
func RenderMarkdown(summary *Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s summary: %s\n\n", titleCase(string(summary.Type)), summary.Period().Label())
	fmt.Fprintf(&b, "- Tenant: %s\n", summary.Tenant)
	fmt.Fprintf(&b, "- Period: %s to %s\n", summary.StartDate.Format(period.DayLayout), summary.EndDate.Format(period.DayLayout))
	fmt.Fprintf(&b, "- Generated: %s\n", summary.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
	if summary.Provider != "" {
		fmt.Fprintf(&b, "- Provider: %s\n", summary.Provider)
	}
	if summary.Degraded {
		b.WriteString("- Degraded: true\n")
	}
	b.WriteString("\n---\n\n")
	b.WriteString(strings.TrimSpace(summary.Content))
	b.WriteString("\n")
	return b.String()
}

// ensureDirectory 确保目录存在
func (sm *StorageManager) ensureDirectory(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

func sanitizeSegment(s string) string {
	return strings.Trim(unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "_"), "._")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
