// Command sedir is the operator CLI for the embeddable directory core:
// it loads LDIF into a configured directory, dumps subtrees, and runs
// one-shot searches.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sedir "github.com/KilimcininKorOglu/sedir"
)

// Version is overridden at build time.
var Version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "sedir",
		Short:         "Embeddable X.500/LDAP directory core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration")

	root.AddCommand(versionCmd(), loadCmd(), dumpCmd(), searchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sedir:", err)
		os.Exit(1)
	}
}

func openDirectory() (*sedir.Directory, error) {
	cfg := sedir.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = sedir.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}
	return sedir.New(cfg)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "sedir", Version)
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file.ldif> [more.ldif...]",
		Short: "Load LDIF files into the directory and report the number of entries loaded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			defer dir.Close()
			admin := dir.AdminSession()

			total := 0
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				n, err := dir.LoadLDIF(admin, f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				total += n
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entries\n", total)
			return nil
		},
	}
}

func dumpCmd() *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "dump [file.ldif...]",
		Short: "Dump a subtree as LDIF after loading the given files",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			defer dir.Close()
			admin := dir.AdminSession()

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				if _, err := dir.LoadLDIF(admin, f); err != nil {
					f.Close()
					return fmt.Errorf("%s: %w", path, err)
				}
				f.Close()
			}
			return dir.DumpLDIF(admin, cmd.OutOrStdout(), base)
		},
	}
	cmd.Flags().StringVarP(&base, "base", "b", "ou=system", "base DN of the dump")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		base      string
		scope     string
		sizeLimit int
	)
	cmd := &cobra.Command{
		Use:   "search <filter> [attrs...]",
		Short: "Run a one-shot search against the configured directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := openDirectory()
			if err != nil {
				return err
			}
			defer dir.Close()

			res, err := dir.Search(dir.AdminSession(), sedir.SearchRequest{
				Base:      base,
				Scope:     scope,
				Filter:    args[0],
				Attrs:     args[1:],
				SizeLimit: sizeLimit,
			})
			if err != nil {
				return err
			}
			defer res.Close()

			out := cmd.OutOrStdout()
			for res.Next() {
				e := res.Entry()
				fmt.Fprintf(out, "dn: %s\n", e.Dn)
				for _, a := range e.Attrs {
					for _, v := range a.Values {
						fmt.Fprintf(out, "%s: %s\n", a.Name, v)
					}
				}
				fmt.Fprintln(out)
			}
			return res.Err()
		},
	}
	cmd.Flags().StringVarP(&base, "base", "b", "ou=system", "search base DN")
	cmd.Flags().StringVarP(&scope, "scope", "s", "sub", "search scope: base, one, sub")
	cmd.Flags().IntVar(&sizeLimit, "size-limit", 0, "maximum number of entries")
	return cmd
}
