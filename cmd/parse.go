/*
Copyright © 2020 Markus Kont alias013@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/markuskont/go-sigma-limacharlie"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a ruleset for testing",
	Long:  `Recursively parses a sigma ruleset from filesystem and provides detailed feedback to the user about rule support.`,
	Run:   parse,
}

// rulesetConfig collects ruleset loader options from viper
func rulesetConfig(failFast bool) sigma.Config {
	c := sigma.Config{
		Directory:       viper.GetStringSlice("rules.dir"),
		FailOnRuleParse: failFast,
		FailOnYamlParse: failFast,
	}
	if path := viper.GetString("rules.placeholders"); path != "" {
		ph, err := sigma.LoadPlaceholders(path)
		if err != nil {
			logrus.Fatal(err)
		}
		logrus.Debugf("Loaded %d placeholders from %s", len(ph), path)
		c.Placeholders = ph
	}
	return c
}

func parse(cmd *cobra.Command, args []string) {
	logrus.Info("Parsing rules into AST")
	ruleset, err := sigma.NewRuleset(rulesetConfig(false))
	if err != nil {
		logrus.Fatal(err)
	}
	for _, tree := range ruleset.Rules {
		logrus.Infof("%s: ok", tree.Rule.Path)
	}
	for _, err := range ruleset.Failures {
		logrus.Warn(err)
	}
	logrus.Infof("TOTAL: %d; OK: %d; FAIL: %d; UNSUPPORTED: %d",
		ruleset.Total, ruleset.Ok, ruleset.Failed, ruleset.Unsupported)
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
