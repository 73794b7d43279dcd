package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archivekit/webarchiver/internal/runtimeconfig"
	"github.com/archivekit/webarchiver/internal/store"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage archivable sites",
}

var (
	siteAddBaseURL            string
	siteAddName               string
	siteAddConcurrency        int
	siteAddMaxPages           int
	siteAddExcludePatterns    []string
	siteAddDownloadBlacklist  []string
	siteAddRemoveWebflowBadge bool
	siteAddMaxArchivesToKeep  int
	siteAddRedirectsCSV       string
	siteAddScheduleCron       string
)

var siteAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new site to archive",
	RunE:  runSiteAdd,
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sites",
	RunE:  runSiteList,
}

var siteRemoveCmd = &cobra.Command{
	Use:   "remove <siteId>",
	Short: "Remove a registered site",
	Args:  cobra.ExactArgs(1),
	RunE:  runSiteRemove,
}

func init() {
	siteAddCmd.Flags().StringVar(&siteAddName, "name", "", "human-readable site name (required)")
	siteAddCmd.Flags().StringVar(&siteAddBaseURL, "base-url", "", "seed URL to crawl from (required)")
	siteAddCmd.Flags().IntVar(&siteAddConcurrency, "concurrency", 5, "requested concurrent fetch workers")
	siteAddCmd.Flags().IntVar(&siteAddMaxPages, "max-pages", 0, "maximum pages to archive (0 for unlimited)")
	siteAddCmd.Flags().StringArrayVar(&siteAddExcludePatterns, "exclude", nil, "page URL exclude rule (exact/prefix*/domain:host), repeatable")
	siteAddCmd.Flags().StringArrayVar(&siteAddDownloadBlacklist, "asset-blacklist", nil, "asset download blacklist rule, repeatable")
	siteAddCmd.Flags().BoolVar(&siteAddRemoveWebflowBadge, "remove-webflow-badge", false, "strip the Webflow attribution badge from archived pages")
	siteAddCmd.Flags().IntVar(&siteAddMaxArchivesToKeep, "keep", 0, "retain only the N most recent completed archives (0 keeps all)")
	siteAddCmd.Flags().StringVar(&siteAddRedirectsCSV, "redirects-csv", "", "path to a redirects CSV applied to this site's crawls")
	siteAddCmd.Flags().StringVar(&siteAddScheduleCron, "schedule", "", "cron expression enabling scheduled crawls (empty disables scheduling)")
	siteCmd.AddCommand(siteAddCmd, siteListCmd, siteRemoveCmd)
	rootCmd.AddCommand(siteCmd)
}

func openSiteStore() (*store.DB, *store.SiteStore, error) {
	runtimeCfg := runtimeconfig.Load()
	db, err := store.Open(runtimeCfg.DataDir, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewSiteStore(db), nil
}

func runSiteAdd(cmd *cobra.Command, args []string) error {
	if siteAddName == "" || siteAddBaseURL == "" {
		return fmt.Errorf("--name and --base-url are required")
	}

	db, sites, err := openSiteStore()
	if err != nil {
		return err
	}
	defer db.Close()

	site := store.Site{
		Name:               siteAddName,
		BaseURL:            siteAddBaseURL,
		Concurrency:        siteAddConcurrency,
		MaxPages:           siteAddMaxPages,
		ExcludePatterns:    siteAddExcludePatterns,
		DownloadBlacklist:  siteAddDownloadBlacklist,
		RemoveWebflowBadge: siteAddRemoveWebflowBadge,
		MaxArchivesToKeep:  siteAddMaxArchivesToKeep,
		RedirectsCSV:       siteAddRedirectsCSV,
		ScheduleEnabled:    siteAddScheduleCron != "",
		ScheduleCron:       siteAddScheduleCron,
		StorageType:        "local",
		StoragePath:        "archives",
	}

	created, err := sites.Create(site)
	if err != nil {
		return err
	}

	fmt.Printf("site created: %s (%s)\n", created.ID, created.Name)
	return nil
}

func runSiteList(cmd *cobra.Command, args []string) error {
	db, sites, err := openSiteStore()
	if err != nil {
		return err
	}
	defer db.Close()

	all, err := sites.List()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("no sites registered")
		return nil
	}
	for _, site := range all {
		schedule := "unscheduled"
		if site.ScheduleEnabled {
			schedule = site.ScheduleCron
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", site.ID, site.Name, site.BaseURL, schedule)
	}
	return nil
}

func runSiteRemove(cmd *cobra.Command, args []string) error {
	db, sites, err := openSiteStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sites.Delete(strings.TrimSpace(args[0])); err != nil {
		return err
	}
	fmt.Printf("site removed: %s\n", args[0])
	return nil
}
