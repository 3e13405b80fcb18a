// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nandctl drives a file-backed simulated NAND device through the
// translation layer core, for manual exercising and scripted smoke tests
// without real hardware.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nandtl/nand"
	"nandtl/phy"
)

var log zerolog.Logger

var (
	devicePath        string
	bytesPerPageLd    uint
	bytesPerSpareArea int
	pagesPerBlockLd   uint
	numBlocks         int
	verbose           bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nandctl",
		Short: "Drive a file-backed simulated NAND device through the translation layer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).With().Timestamp().Logger()
		},
	}

	root.PersistentFlags().StringVar(&devicePath, "device", "nand.img", "path to the backing image file")
	root.PersistentFlags().UintVar(&bytesPerPageLd, "page-ld", 11, "log2 of bytes per page")
	root.PersistentFlags().IntVar(&bytesPerSpareArea, "spare-bytes", 64, "bytes per spare area")
	root.PersistentFlags().UintVar(&pagesPerBlockLd, "block-ld", 6, "log2 of pages per block")
	root.PersistentFlags().IntVar(&numBlocks, "num-blocks", 1024, "total physical blocks in the image")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newFormatCmd(),
		newStatCmd(),
		newWriteCmd(),
		newReadCmd(),
		newCleanCmd(),
		newMarkBadCmd(),
	)
	return root
}

func deviceInfo() phy.DeviceInfo {
	return phy.DeviceInfo{
		BytesPerPageLd:    bytesPerPageLd,
		BytesPerSpareArea: bytesPerSpareArea,
		PagesPerBlockLd:   pagesPerBlockLd,
		NumBlocks:         numBlocks,
	}
}

func openPhy() (*phy.FilePhy, error) {
	return phy.NewFilePhy(devicePath, deviceInfo())
}

func newFormatCmd() *cobra.Command {
	var numWorkBlocks int
	var pctReserved int
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Low-level format the backing image",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPhy()
			if err != nil {
				return err
			}
			defer p.DeInit()

			opts := nand.DefaultOptions()
			if numWorkBlocks > 0 {
				opts.NumWorkBlocks = numWorkBlocks
			}
			if pctReserved > 0 {
				opts.PctBlocksReserved = pctReserved
			}
			if err := nand.Format(p, opts); err != nil {
				return err
			}
			log.Info().Str("device", devicePath).Msg("formatted")
			return nil
		},
	}
	cmd.Flags().IntVar(&numWorkBlocks, "work-blocks", 0, "number of work blocks (0: default)")
	cmd.Flags().IntVar(&pctReserved, "pct-reserved", 0, "percent of blocks reserved (0: default)")
	return cmd
}

func mountForCmd() (*nand.Device, *phy.FilePhy, error) {
	p, err := openPhy()
	if err != nil {
		return nil, nil, err
	}
	d, err := nand.Mount(p, nand.DefaultOptions())
	if err != nil {
		p.DeInit()
		return nil, nil, err
	}
	return d, p, nil
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat",
		Short: "Mount the image and report sector usage and wear statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, p, err := mountForCmd()
			if err != nil {
				return err
			}
			defer p.DeInit()

			u := d.GetSectorUsage()
			fmt.Printf("sectors:       %d (%d used)\n", u.NumSectors, u.NumSectorsUsed)
			fmt.Printf("blocks free:   %d\n", u.NumBlocksFree)
			fmt.Printf("erase count:   min=%d max=%d\n", u.EraseCntMin, u.EraseCntMax)
			fmt.Printf("write protected: %v\n", d.IsWriteProtected())
			fmt.Printf("fatal error:     %v\n", d.HasFatalError())
			return nil
		},
	}
}

func newWriteCmd() *cobra.Command {
	var sector int64
	var text string
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write one sector's worth of text, padded with zeros",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, p, err := mountForCmd()
			if err != nil {
				return err
			}
			defer p.DeInit()

			buf := make([]byte, d.SectorSize())
			copy(buf, text)
			if err := d.WriteSectors(sector, buf, 1, false); err != nil {
				return err
			}
			log.Info().Int64("sector", sector).Msg("wrote sector")
			return nil
		},
	}
	cmd.Flags().Int64Var(&sector, "sector", 0, "logical sector index")
	cmd.Flags().StringVar(&text, "text", "", "text to write")
	return cmd
}

func newReadCmd() *cobra.Command {
	var sector int64
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read one sector and print it, trimmed of trailing NULs",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, p, err := mountForCmd()
			if err != nil {
				return err
			}
			defer p.DeInit()

			buf := make([]byte, d.SectorSize())
			if err := d.ReadSectors(sector, buf, 1); err != nil {
				return err
			}
			n := len(buf)
			for n > 0 && buf[n-1] == 0 {
				n--
			}
			fmt.Println(string(buf[:n]))
			return nil
		},
	}
	cmd.Flags().Int64Var(&sector, "sector", 0, "logical sector index")
	return cmd
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Run the fast-write reservation pass until its targets are met",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, p, err := mountForCmd()
			if err != nil {
				return err
			}
			defer p.DeInit()

			more, err := d.Clean()
			if err != nil {
				return err
			}
			log.Info().Int("converted", d.GetCleanCnt()).Bool("moreToClean", more).Msg("clean pass done")
			return nil
		},
	}
}

func newMarkBadCmd() *cobra.Command {
	var block int
	cmd := &cobra.Command{
		Use:   "mark-bad",
		Short: "Write the driver bad-block marker onto a physical block, for fault-injection testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPhy()
			if err != nil {
				return err
			}
			defer p.DeInit()

			var info phy.DeviceInfo
			if err := p.InitGetDeviceInfo(&info); err != nil {
				return err
			}
			if err := nand.MarkBlockBad(p, info, nand.PBI(block), nand.FatalNone, 0); err != nil {
				return err
			}
			log.Info().Int("block", block).Msg("marked bad")
			return nil
		},
	}
	cmd.Flags().IntVar(&block, "block", 0, "physical block index")
	return cmd
}
