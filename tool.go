package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var toolCmd = &cobra.Command{
	Use:   "tool <name> [json-args]",
	Short: "直接调用生成工具，参数为 JSON，省略时从标准输入读取",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := setup(configPath)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			infos, err := a.registry.Infos(ctx)
			if err != nil {
				return err
			}
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", info.Name, info.Desc)
			}
			return nil
		}

		t, ok := a.registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown tool %q", args[0])
		}
		var input string
		if len(args) == 2 {
			input = args[1]
		} else {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			input = string(b)
		}
		out, err := t.InvokableRun(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}
