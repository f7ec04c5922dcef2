package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/api"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/util"
)

func newBlockingCommand() *cobra.Command {
	c := &cobra.Command{
		Use:     "blocking",
		Aliases: []string{"block"},
		Short:   "Control the deny list",
	}

	c.AddCommand(&cobra.Command{
		Use:   "block <domain>",
		Args:  cobra.ExactArgs(1),
		Short: "Add a domain to the deny list",
		Run: func(_ *cobra.Command, args []string) {
			mutateBlocking(api.PathBlockingBlock, args[0])
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "unblock <domain>",
		Args:  cobra.ExactArgs(1),
		Short: "Remove a domain from the deny list",
		Run: func(_ *cobra.Command, args []string) {
			mutateBlocking(api.PathBlockingUnblk, args[0])
		},
	})

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "Print all blocked domains",
		Run:   listBlocked,
	})

	return c
}

func mutateBlocking(path, domain string) {
	body, err := json.Marshal(api.BlockRequest{Domain: domain})
	util.FatalOnError("can't marshal request: ", err)

	resp, err := http.Post(apiURL(path), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Log().Fatal("can't execute: ", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		log.Log().Info("OK")
	} else {
		log.Log().Fatal("NOK: ", resp.Status)
	}
}

func listBlocked(_ *cobra.Command, _ []string) {
	resp, err := http.Get(apiURL(api.PathBlockingList))
	if err != nil {
		log.Log().Fatal("can't execute: ", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Log().Fatal("NOK: ", resp.Status)

		return
	}

	var result api.BlockedListResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	util.FatalOnError("can't read response: ", err)

	log.Log().Infof("%d blocked domain(s):", result.Count)

	for _, domain := range result.Domains {
		log.Log().Infof("  %s", domain)
	}
}
