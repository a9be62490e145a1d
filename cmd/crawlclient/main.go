package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/crawlclient/internal/core"
	"github.com/RecoveryAshes/crawlclient/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	configFile string
	verbose    bool
	logLevel   string
	headers    []string

	serverURL  string
	timeout    int
	reportPath string
	noSpinner  bool
)

// appConfig 在 PersistentPreRunE 中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "crawlclient",
	Short: "爬取服务交互式客户端",
	Long: `crawlclient - 爬取服务交互式客户端

循环提示输入目标URL和可选的爬取深度, 向本地爬取服务发起请求并输出结果:
  GET http://localhost:1234/crawl?url=<URL>[&deep=<深度>]

每轮结束后询问是否重试, 输入 y 继续, 其他任意输入退出。

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		if !cmd.Flags().Changed("timeout") {
			timeout = -1
		}
		config.MergeCLIFlags(serverURL, timeout, reportPath, noSpinner, verbose)
		if logLevel != "" {
			config.Logging.Level = logLevel
		}
		if err := config.Validate(); err != nil {
			return err
		}

		if err := utils.InitLogger(config.LogConfig()); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Ctrl+C 直接退出, 正在进行的请求随进程结束
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("收到中断信号: %v, 退出", sig)
			os.Exit(0)
		}()

		headerManager, err := core.NewHeaderManager(appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}
		if err := headerManager.Validate(); err != nil {
			return fmt.Errorf("HTTP头部验证失败: %w", err)
		}
		if safe := headerManager.GetSafeHeaders(); len(safe) > 0 {
			utils.Infof("附加HTTP头部 (%d个): %v", len(safe), safe)
		}

		clientConfig := appConfig.ClientConfig()
		clientConfig.Headers = headerManager
		client := core.NewCrawlClient(clientConfig)

		var spinnerOut io.Writer
		if appConfig.UI.Spinner && utils.IsTerminal(os.Stderr) {
			spinnerOut = os.Stderr
		}

		session := core.NewSession(client, core.SessionOptions{
			BaseURL:    client.BaseURL(),
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
			SpinnerOut: spinnerOut,
			ReportPath: appConfig.Report.Path,
		})

		return session.Run(context.Background())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不加载配置也不初始化日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "crawlclient %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "构建时间: %s\n", BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "在标准错误输出日志")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "附加HTTP头部,格式: 'Name: Value',可多次指定")

	rootCmd.Flags().StringVar(&serverURL, "server", "", "爬取服务地址 (默认 http://localhost:1234/crawl)")
	rootCmd.Flags().IntVar(&timeout, "timeout", 0, "请求超时(秒), 0表示不设置")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "会话报告输出路径(JSON)")
	rootCmd.Flags().BoolVar(&noSpinner, "no-spinner", false, "关闭等待指示器")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
