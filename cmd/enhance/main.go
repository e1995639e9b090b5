package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// 子命令共用的参数
var (
	configPath = pflag.StringP("config", "c", "", "配置文件路径")
	inputFile  = pflag.StringP("file", "f", "", "输入文件：extract/enhance 为简历文件，render 为规范化 JSON")
	outputFile = pflag.StringP("out", "o", "", "输出文件，为空时打印到标准输出")
	provider   = pflag.String("provider", "", "覆盖已保存的提供方 (openai, claude, ollama)")
	model      = pflag.String("model", "", "覆盖已保存的模型名")
	jobTitle   = pflag.String("job-title", "", "目标职位，为空时使用已保存的职位名称")
	snapshot   = pflag.String("save-snapshot", "", "enhance 成功后以该文件名保存到快照目录")
	format     = pflag.String("format", "pdf", "render 输出格式: pdf 或 html")
	maxLen     = pflag.Int("maxlen", 1000, "显示的文本最大长度，设为-1显示全部")
)

func usage() {
	fmt.Fprintf(os.Stderr, "用法: %s <extract|enhance|render> [参数]\n\n", os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]
	if err := pflag.CommandLine.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	switch command {
	case "extract":
		handleExtractCommand()
	case "enhance":
		handleEnhanceCommand()
	case "render":
		handleRenderCommand()
	default:
		fmt.Printf("错误: 未知命令 '%s'。支持的命令: extract, enhance, render\n", command)
		usage()
		os.Exit(1)
	}
}
