package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/navahdam/pktwatch/config"
	"github.com/navahdam/pktwatch/rules"
)

// openStore loads the rule store named by the config file, falling back to
// the default rules path when no config file exists yet.
func openStore(c *cli.Context) (*rules.Store, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		def := config.GenerateConfigTemplate()
		cfg = &def
	}
	return rules.Load(cfg.Rules.Path, false)
}

func rulesList(c *cli.Context) error {
	s, err := openStore(c)
	if err != nil {
		return err
	}

	snap := s.Snapshot()
	printSet("Blocked addresses", snap.Addresses)
	printSet("Blocked ports", snap.Ports)
	printSet("Blocked protocols", snap.Protocols)
	return nil
}

func printSet(title string, set map[string]struct{}) {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)

	fmt.Printf("%s (%d):\n", title, len(values))
	for _, v := range values {
		fmt.Printf("  %s\n", v)
	}
}

func rulesAdd(c *cli.Context) error {
	return mutateRule(c, func(s *rules.Store, kind rules.Kind, value string) error {
		return s.AddRule(kind, value)
	})
}

func rulesRemove(c *cli.Context) error {
	return mutateRule(c, func(s *rules.Store, kind rules.Kind, value string) error {
		return s.RemoveRule(kind, value)
	})
}

func mutateRule(c *cli.Context, apply func(*rules.Store, rules.Kind, string) error) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected arguments: <ip|port|proto> <value>")
	}

	kind, err := rules.ParseKind(c.Args().Get(0))
	if err != nil {
		return err
	}

	s, err := openStore(c)
	if err != nil {
		return err
	}
	if err := apply(s, kind, c.Args().Get(1)); err != nil {
		return err
	}
	return s.Save()
}
