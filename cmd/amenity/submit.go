package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/templui/amenitymap/internal/apiclient"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/submission"
	"github.com/templui/amenitymap/internal/upload"
	"github.com/templui/amenitymap/internal/validation"
)

func submitCmd(apiURL *string) *cobra.Command {
	var req model.CreateAmenityRequest
	var category string

	cmd := &cobra.Command{
		Use:   "submit [photo...]",
		Short: "Create an amenity and attach up to 3 photos",
		Example: `  amenity submit --category power-outlets --name "Library outlet" \
    --lat 1.2966 --lng 103.8526 front.jpg socket.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := apiclient.New(*apiURL)

			categoryID, err := resolveCategory(cmd, client, category)
			if err != nil {
				return err
			}
			req.CategoryID = categoryID

			images := upload.New(client, client, upload.OnChange(func(c upload.Candidate) {
				switch c.State {
				case upload.StateUploading:
					fmt.Fprintf(cmd.ErrOrStderr(), "  %-30s uploading %d%%\n", c.Filename, c.Progress)
				case upload.StateUploaded:
					fmt.Fprintf(cmd.ErrOrStderr(), "  %-30s uploaded\n", c.Filename)
				case upload.StateError:
					fmt.Fprintf(cmd.ErrOrStderr(), "  %-30s failed: %s\n", c.Filename, c.Err)
				}
			}))

			files, err := readPhotos(args)
			if err != nil {
				return err
			}

			added := images.Add(ctx, files)
			if added.Warning != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", added.Warning)
			}
			for _, r := range added.Rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", r.Filename, r.Err)
			}
			for _, c := range added.Accepted {
				if c.Compressed() {
					fmt.Fprintf(cmd.ErrOrStderr(), "compressed %s: %d -> %d bytes\n", c.Filename, c.OriginalSize, c.Size)
				}
			}

			flow := submission.New(client, images, client)
			result, err := flow.Submit(ctx, req)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.AmenityID)
			switch {
			case result.ImageErr == nil:
				fmt.Fprintf(cmd.ErrOrStderr(), "created with %d photo(s)\n", len(result.Images))
			case errors.Is(result.ImageErr, repository.ErrCapacityExceeded):
				fmt.Fprintln(cmd.ErrOrStderr(), "created, but photos were not attached: this amenity already has the maximum number of photos")
			default:
				fmt.Fprintln(cmd.ErrOrStderr(), "created, but photos could not be attached:", result.ImageErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category id or slug")
	cmd.Flags().StringVar(&req.Name, "name", "", "amenity name")
	cmd.Flags().StringVar(&req.Description, "description", "", "optional description")
	cmd.Flags().StringVar(&req.Address, "address", "", "optional street address")
	cmd.Flags().Float64Var(&req.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&req.Lng, "lng", 0, "longitude")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}

func resolveCategory(cmd *cobra.Command, client *apiclient.Client, category string) (string, error) {
	if uuid.Validate(category) == nil {
		return category, nil
	}

	categories, err := client.Categories(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("failed to load categories: %w", err)
	}
	for _, c := range categories {
		if c.Slug == category {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("unknown category %q (see 'amenity categories')", category)
}

// readPhotos loads files from disk, sniffing the content type and falling
// back to the extension so unsupported formats are reported by name.
func readPhotos(paths []string) ([]upload.File, error) {
	files := make([]upload.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}

		contentType := validation.DetectImageType(data)
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(p))
		}

		files = append(files, upload.File{
			Name:        filepath.Base(p),
			ContentType: contentType,
			Data:        data,
		})
	}
	return files, nil
}
