package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeRoot 重置全局参数后执行根命令
func executeRoot(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	configFile, verbose, logLevel, headers = "", false, "", []string{}
	serverURL, timeout, reportPath, noSpinner = "", 0, "", false
	appConfig = nil

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestRootCmd_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	config := writeTestConfig(t, dir, "logging:\n  log_dir: "+filepath.Join(dir, "logs")+"\n")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"默认服务地址", []string{"--config", config}, false},
		{"较长超时", []string{"--config", config, "--timeout", "7200"}, false},
		{"服务地址缺少协议", []string{"--config", config, "--server", "localhost:1234/crawl"}, true},
		{"负数超时", []string{"--config", config, "--timeout=-5"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 空输入使会话立即结束
			_, err := executeRoot(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionCmd_SkipsConfig(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("切换目录失败: %v", err)
	}
	defer os.Chdir(wd)

	broken := writeTestConfig(t, dir, "server: [unclosed")

	out, err := executeRoot(t, "", "version", "--config", broken)
	if err != nil {
		t.Fatalf("version不应读取配置: %v", err)
	}
	if !strings.Contains(out, "crawlclient "+Version) {
		t.Errorf("输出应包含版本号: %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("version不应创建日志目录")
	}
}
