package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"EchoCanvas/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
	minioSign   string
	minioExpiry time.Duration
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理存放上传歌曲的MinIO存储桶，支持列出文件、查看统计信息、删除目录。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := appConfig()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if minioSign != "" {
			store := storage.NewAudioStore()
			u, err := store.PresignedURL(ctx, minioSign, minioExpiry)
			if err != nil {
				log.Fatalf("生成下载链接失败: %v", err)
			}
			fmt.Printf("\n%s (有效期 %s):\n%s\n", minioSign, minioExpiry, u)
			return
		}

		if minioDelete {
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定目录前缀")
			}
			fmt.Printf("\n删除目录: %s\n", minioPrefix)
			n, err := storage.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除目录失败 (已删除 %d 个对象): %v", n, err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return
		}

		objects, stats, err := storage.ListBucketObjects(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		if !minioStats {
			fmt.Printf("\n存储桶中的文件 (前缀: %q):\n", minioPrefix)
			for _, obj := range objects {
				fmt.Printf("  %-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size),
					obj.LastModified.Format("2006-01-02 15:04:05"))
			}
		}

		fmt.Printf("\n对象总数: %d\n", stats.TotalObjects)
		fmt.Printf("总大小:   %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		if minioStats {
			types := make([]string, 0, len(stats.ByType))
			for t := range stats.ByType {
				types = append(types, t)
			}
			sort.Strings(types)
			fmt.Println("按类型统计:")
			for _, t := range types {
				fmt.Printf("  %-28s %s\n", t, storage.FormatSize(stats.ByType[t]))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")
	minioCmd.Flags().StringVar(&minioSign, "presign", "", "为指定对象生成临时下载链接")
	minioCmd.Flags().DurationVar(&minioExpiry, "expiry", time.Hour, "临时下载链接的有效期")

	minioCmd.Example = `  # 列出所有文件
  echo-canvas minio

  # 只看某个用户的上传
  echo-canvas minio -p "uploads/42/"

  # 显示存储桶统计信息
  echo-canvas minio -s

  # 为上传的歌曲生成一小时有效的下载链接
  echo-canvas minio --presign "uploads/42/3f2a.mp3"

  # 删除目录及其下的所有文件
  echo-canvas minio -d -p "uploads/42/"`
}
