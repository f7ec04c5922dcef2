package cmd

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/api"
	"github.com/dnstrail/dnstrail/log"
	"github.com/dnstrail/dnstrail/util"
)

func newCacheCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the result cache",
	}

	c.AddCommand(&cobra.Command{
		Use:   "list",
		Args:  cobra.NoArgs,
		Short: "Print all valid cache entries",
		Run:   listCache,
	})

	c.AddCommand(&cobra.Command{
		Use:   "clear",
		Args:  cobra.NoArgs,
		Short: "Drop all cache entries",
		Run:   clearCache,
	})

	return c
}

func listCache(_ *cobra.Command, _ []string) {
	resp, err := http.Get(apiURL(api.PathCacheList))
	if err != nil {
		log.Log().Fatal("can't execute: ", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Log().Fatal("NOK: ", resp.Status)

		return
	}

	var result api.CacheResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	util.FatalOnError("can't read response: ", err)

	log.Log().Infof("%d cache entrie(s):", result.Count)

	for _, entry := range result.Entries {
		log.Log().Infof("  %s -> %s (expires in %ds)", entry.Domain, entry.FirstValue, entry.RemainingSeconds)
	}
}

func clearCache(_ *cobra.Command, _ []string) {
	resp, err := http.Post(apiURL(api.PathCacheClear), "application/json", nil)
	if err != nil {
		log.Log().Fatal("can't execute: ", err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Log().Fatal("NOK: ", resp.Status)

		return
	}

	var result api.ClearResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	util.FatalOnError("can't read response: ", err)

	log.Log().Infof("OK, %d entries removed", result.Cleared)
}
