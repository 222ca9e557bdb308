package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/templui/amenitymap/internal/apiclient"
	"github.com/templui/amenitymap/internal/model"
)

func listCmd(apiURL *string) *cobra.Command {
	var boundsFlag string
	var categories []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List amenities in a bounding box",
		RunE: func(cmd *cobra.Command, args []string) error {
			bounds, err := parseBounds(boundsFlag)
			if err != nil {
				return err
			}

			amenities, err := apiclient.New(*apiURL).Amenities(cmd.Context(), bounds, categories)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tNAME\tLAT\tLNG")
			for _, a := range amenities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.5f\t%.5f\n", a.ID, a.CategorySlug, a.Name, a.Lat, a.Lng)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&boundsFlag, "bounds", "", "minLat,minLng,maxLat,maxLng (default: whole region)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "category slugs to include")

	return cmd
}

func parseBounds(s string) (*model.Bounds, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("--bounds needs 4 comma separated numbers, got %q", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("--bounds: %w", err)
		}
		v[i] = f
	}

	return &model.Bounds{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}, nil
}

func imagesCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "images <amenity-id>",
		Short: "List an amenity's photos in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			images, err := apiclient.New(*apiURL).Images(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tFILENAME\tTYPE\tBYTES\tURL")
			for _, img := range images {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", img.DisplayOrder, img.Filename, img.ContentType, img.FileSize, img.CDNURL)
			}
			return w.Flush()
		},
	}
}

func categoriesCmd(apiURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List amenity categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories, err := apiclient.New(*apiURL).Categories(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tNAME\tID")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Slug, c.Name, c.ID)
			}
			return w.Flush()
		},
	}
}
