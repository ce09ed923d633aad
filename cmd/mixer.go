package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"EchoCanvas/core/audio"
	"EchoCanvas/core/mixer"

	"github.com/spf13/cobra"
)

var (
	mixerRender   string
	mixerDuration time.Duration
	mixerTracks   []string
	mixerVolume   float64
	mixerDelayMix float64
	mixerSources  []string
)

var mixerCmd = &cobra.Command{
	Use:   "mixer",
	Short: "离线渲染混音器",
	Long: `以服务端混音器相同的音频链 (音量、静音、反馈延迟、主输出) 离线渲染一段混音，
并通过 ffmpeg 编码为音频文件。默认使用内置示例或 MIXER_SAMPLES_DIR 中的文件。`,
	Run: func(cmd *cobra.Command, args []string) {
		if mixerRender == "" {
			log.Fatal("请使用 --render 指定输出文件")
		}
		if mixerDuration <= 0 || mixerDuration > mixer.MaxRenderDuration {
			log.Fatalf("无效的 --duration: %s (范围 0 到 %s)", mixerDuration, mixer.MaxRenderDuration)
		}
		cfg := appConfig()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		processor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
		library := mixer.NewLibrary(cfg.MixerSamplesDir)
		session := mixer.NewSession(mixer.Options{
			Loader: mixer.NewFFmpegLoader(processor),
			Tracks: library.TrackSpecs(),
			BPM:    cfg.MixerBPM,
		})
		defer session.Dispose()

		fmt.Println("加载音轨...")
		report, err := session.Activate(ctx)
		if err != nil {
			log.Fatalf("激活混音器失败: %v", err)
		}
		if msg := report.Warning(); msg != "" {
			fmt.Println("警告:", msg)
		}

		// --source track2=/path/to/file.wav
		if len(mixerSources) > 0 {
			for _, arg := range mixerSources {
				id, path, ok := strings.Cut(arg, "=")
				if !ok || id == "" || path == "" {
					log.Fatalf("无效的 --source 参数: %q (格式: trackId=path)", arg)
				}
				session.ReplaceTrackSource(id, mixer.Source{Ref: path, Name: filepath.Base(path)})
			}
			report, err := session.Sync(ctx)
			if err != nil {
				log.Fatalf("加载替换音源失败: %v", err)
			}
			if msg := report.Warning(); msg != "" {
				fmt.Println("警告:", msg)
			}
		}

		snap := session.Snapshot()
		for _, tr := range snap.Tracks {
			if cmd.Flags().Changed("volume") {
				if err := session.SetParameter(tr.ID, mixer.ParamVolume, mixerVolume); err != nil {
					log.Fatalf("设置音量失败: %v", err)
				}
			}
			if cmd.Flags().Changed("delay-mix") {
				if err := session.SetParameter(tr.ID, mixer.ParamDelayMix, mixerDelayMix); err != nil {
					log.Fatalf("设置延迟失败: %v", err)
				}
			}
		}

		if len(mixerTracks) == 0 {
			started, err := session.PlayAll()
			if err != nil {
				log.Fatalf("播放失败: %v", err)
			}
			fmt.Printf("播放音轨: %s\n", strings.Join(started, ", "))
		} else {
			for _, id := range mixerTracks {
				if _, err := session.TogglePlayback(id); err != nil {
					log.Fatalf("无法播放音轨 %s: %v", id, err)
				}
			}
		}

		fmt.Printf("渲染 %s 到 %s...\n", mixerDuration, mixerRender)
		if err := session.Bounce(ctx, processor, mixerDuration, mixerRender); err != nil {
			log.Fatalf("渲染失败: %v", err)
		}
		fmt.Println("渲染完成！")
	},
}

func init() {
	rootCmd.AddCommand(mixerCmd)

	mixerCmd.Flags().StringVar(&mixerRender, "render", "", "输出文件 (例如 out.wav)")
	mixerCmd.Flags().DurationVar(&mixerDuration, "duration", 8*time.Second, "渲染时长")
	mixerCmd.Flags().StringSliceVar(&mixerTracks, "tracks", nil, "只播放指定音轨 (默认全部)")
	mixerCmd.Flags().StringSliceVar(&mixerSources, "source", nil, "替换音源, 格式 trackId=path")
	mixerCmd.Flags().Float64Var(&mixerVolume, "volume", 0.75, "所有音轨的音量 [0,1]")
	mixerCmd.Flags().Float64Var(&mixerDelayMix, "delay-mix", 0, "所有音轨的延迟湿度 [0,1]")

	mixerCmd.Example = `  # 渲染 8 秒默认示例
  echo-canvas mixer --render out.wav

  # 只播放前两个音轨, 加一点延迟
  echo-canvas mixer --render out.wav --duration 12s --tracks track1,track2 --delay-mix 0.3`
}
