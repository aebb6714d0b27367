package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "scriptwizard",
	Short:   "品牌短影音制作向导：脚本、分镜图片、影片",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（YAML）")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
