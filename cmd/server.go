package cmd

import (
	"EchoCanvas/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 Echo Canvas 服务器",
	Long:  `启动 Echo Canvas 的 HTTP 服务器，提供搜索、收藏、AI 建议和混音器 WebSocket 接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(appConfig())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
