package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gobridgerelay/config"
	"gobridgerelay/ipfs"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var ipfsCmd = &cobra.Command{
	Use:   "ipfs",
	Short: "Pin JSON documents to IPFS and read them back",
}

var ipfsPinCmd = &cobra.Command{
	Use:   "pin <file.json>",
	Short: "Pin a JSON object and print its CID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrapf(err, "cannot read %s", args[0])
		}
		var data map[string]interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return errors.Wrapf(err, "%s is not a JSON object", args[0])
		}

		ctx, cancel := interruptContext()
		defer cancel()

		cid, err := ipfs.NewClient(&config.Config).PinJSON(ctx, data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cid)
		return nil
	},
}

var ipfsGetCmd = &cobra.Command{
	Use:   "get <cid>",
	Short: "Print a pinned JSON object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptContext()
		defer cancel()

		data, err := ipfs.NewClient(&config.Config).GetJSON(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	},
}

func init() {
	ipfsCmd.AddCommand(ipfsPinCmd, ipfsGetCmd)
}
