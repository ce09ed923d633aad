package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"EchoCanvas/cache"
	"EchoCanvas/core/plugin"
	"EchoCanvas/core/youtube"

	"github.com/spf13/cobra"
)

var (
	searchToken    string
	searchSource   string
	searchCaptions bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "命令行搜索歌曲",
	Long:  `通过搜索插件查找歌曲，可选获取第一个结果的字幕歌词。未配置 RapidAPI 时返回示例结果。`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := appConfig()
		query := strings.Join(args, " ")

		manager := plugin.NewSearchPluginManager(cache.New(nil))
		manager.Register(plugin.NewYouTubePlugin(youtube.NewClient(youtube.ConfigFromApp(cfg))))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fmt.Printf("正在搜索: %s\n", query)
		page, err := manager.Search(ctx, searchSource, query, searchToken)
		if err != nil {
			log.Fatalf("搜索失败: %v", err)
		}
		if len(page.Results) == 0 {
			fmt.Println("未找到相关歌曲")
			return
		}

		fmt.Printf("\n找到 %d 首歌曲:\n", len(page.Results))
		for i, r := range page.Results {
			fmt.Printf("%d. %s - %s\n   %s\n", i+1, r.Title, r.Attribution, r.PlayableURL)
		}
		if page.NextContinuationToken != "" {
			fmt.Printf("\n下一页: --token %s\n", page.NextContinuationToken)
		}

		if !searchCaptions {
			return
		}
		first := page.Results[0]
		lines, err := manager.Captions(ctx, searchSource, first.ID)
		if err != nil {
			log.Fatalf("获取字幕失败: %v", err)
		}
		if lines == nil {
			fmt.Printf("\n%s 没有可用字幕\n", first.Title)
			return
		}
		fmt.Printf("\n%s 的字幕:\n", first.Title)
		for _, line := range lines {
			fmt.Println("  " + line)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchToken, "token", "t", "", "分页 token")
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", plugin.DefaultSource, "搜索来源")
	searchCmd.Flags().BoolVarP(&searchCaptions, "captions", "c", false, "获取第一个结果的字幕")
}
