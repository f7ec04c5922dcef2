package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/api"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/model"
	"github.com/dnstrail/dnstrail/util"
)

func newQueryCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "query <domain>",
		Args:  cobra.ExactArgs(1),
		Short: "performs a resolution via the running server",
		Run:   query,
	}

	c.Flags().StringP("mode", "m", "recursive", "resolution mode (recursive, iterative, multi)")

	return c
}

func query(cmd *cobra.Command, args []string) {
	mode, _ := cmd.Flags().GetString("mode")

	body, err := json.Marshal(api.ResolveRequest{
		Domain: args[0],
		Mode:   mode,
	})
	util.FatalOnError("can't marshal request: ", err)

	resp, err := http.Post(apiURL(api.PathResolve), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Log().Fatal("can't execute: ", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusGatewayTimeout {
		log.Log().Fatal("NOK: ", resp.Status)

		return
	}

	var result model.Response
	err = json.NewDecoder(resp.Body).Decode(&result)
	util.FatalOnError("can't read response: ", err)

	printResponse(&result)
}

func printResponse(response *model.Response) {
	log.Log().Infof("domain '%s' (%s): %s", response.Domain, response.Mode, response.RType)

	if response.Message != "" {
		log.Log().Infof("message: %s", response.Message)
	}

	for _, rType := range model.RecordTypes {
		values := response.Records[rType]
		if len(values) == 0 {
			continue
		}

		for _, value := range values {
			log.Log().Infof("  %-5s %s", rType, value)
		}
	}

	if !response.Blocked && !response.Cached {
		log.Log().Infof("TTL: %d", response.TTL)
	}

	log.Log().Info("steps:")

	for _, step := range response.Steps {
		line := fmt.Sprintf("  %s [%s]", step.Name, step.Status)
		if step.Info != "" {
			line += " " + step.Info
		}

		log.Log().Info(line)
	}

	log.Log().Infof("total: %d ms", response.Timings[model.TimingTotal])

	if response.Multi != nil {
		log.Log().Infof("faster family: %s", response.Multi.Faster)
	}
}
