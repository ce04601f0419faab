// Package album orchestrates a full album run: fetch the page, extract the
// image references, download each image into the output folder.
package album

import (
	"bytes"
	"context"

	"imgurdl/pkg/config"
	errs "imgurdl/pkg/errors"
	"imgurdl/pkg/extract"
	"imgurdl/pkg/imgur"
	"imgurdl/pkg/logger"
	"imgurdl/pkg/storage"
)

// Client defines the HTTP operations the downloader needs
type Client interface {
	FetchAlbumPage(ctx context.Context, url string) (string, error)
	DownloadImage(ctx context.Context, url string) ([]byte, string, error)
}

// ImageError records one failed image within an otherwise continuing run
type ImageError struct {
	ID  string
	Err error
}

// Report summarizes a completed album run
type Report struct {
	Key    string
	Folder string
	// Total is the number of image references extracted from the page
	Total   int
	Saved   int
	Skipped int
	Failed  []ImageError
	// Extensions counts saved images per file extension
	Extensions map[string]int
}

// Downloader runs albums sequentially: one HTTP request in flight at a time,
// no overlap between the fetch, extract and download phases
type Downloader struct {
	client    Client
	extractor extract.Extractor
	cfg       *config.Config
	logger    logger.Logger
	observer  Observer
}

// New creates a Downloader. A nil extractor gets the default strategy chain:
// the embedded-data scan with a direct-link fallback.
func New(cfg *config.Config, client Client, extractor extract.Extractor, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if extractor == nil {
		extractor = extract.Chain{
			extract.NewEmbeddedDataExtractor(cfg.Extract.Extensions),
			extract.NewDirectLinkExtractor(),
		}
	}

	return &Downloader{
		client:    client,
		extractor: extractor,
		cfg:       cfg,
		logger:    log,
		observer:  NopObserver{},
	}
}

// SetObserver registers the observer notified during Run
func (d *Downloader) SetObserver(obs Observer) {
	if obs == nil {
		obs = NopObserver{}
	}
	d.observer = obs
}

// Run downloads the album at albumURL into folder. An empty folder derives
// one from the album key under the configured base directory.
//
// A page that cannot be fetched returns a fetch error and no report. Zero
// extracted references returns the report alongside an extraction-empty
// error so callers can tell an empty album from a fetch failure; individual
// image failures are recorded in the report and never abort the run.
func (d *Downloader) Run(ctx context.Context, albumURL, folder string) (*Report, error) {
	pageURL, err := imgur.AlbumPageURL(albumURL)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeFetch, "%v", err)
	}
	key, err := imgur.AlbumKey(albumURL)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeFetch, "%v", err)
	}

	d.logger.InfoWithFields("fetching album page", map[string]interface{}{
		"album": key,
		"url":   pageURL,
	})

	html, err := d.client.FetchAlbumPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	refs := d.extractor.Extract(html)

	if folder == "" {
		folder = storage.DeriveFolder(d.cfg.Output.BaseDirectory, key)
	}

	report := &Report{
		Key:        key,
		Folder:     folder,
		Total:      len(refs),
		Extensions: make(map[string]int),
	}

	manager, err := storage.NewManager(folder, d.cfg.Output.OverwriteExisting)
	if err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		// Indistinguishable from a page layout the pattern no longer
		// matches, hence the warning rather than a plain info line.
		d.logger.WarnWithFields("no image references found; empty album or changed page layout", map[string]interface{}{
			"album": key,
		})
		d.observer.OnComplete(0)
		return report, errs.New(errs.ErrorTypeExtractionEmpty, "no image references found")
	}

	d.logger.InfoWithFields("found images in album", map[string]interface{}{
		"album": key,
		"count": len(refs),
	})

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d.downloadOne(ctx, manager, report, ref, i+1)
	}

	d.observer.OnComplete(report.Total)

	d.logger.InfoWithFields("album run complete", map[string]interface{}{
		"album":   key,
		"saved":   report.Saved,
		"skipped": report.Skipped,
		"failed":  len(report.Failed),
	})

	return report, nil
}

// downloadOne processes a single image reference: skip, or download and
// save. The observer fires exactly once per call.
func (d *Downloader) downloadOne(ctx context.Context, manager *storage.Manager, report *Report, ref extract.ImageRef, index int) {
	if ref.Ext != "" && manager.ShouldSkip(manager.FileName(ref.ID, index, ref.Ext)) {
		d.logger.DebugWithFields("skipping existing image", map[string]interface{}{
			"id":    ref.ID,
			"index": index,
		})
		report.Skipped++
		d.observer.OnImage(index, report.Total, ref.ID, nil)
		return
	}

	url := imgur.ImageURL(d.cfg.Imgur.ImageBaseURL, ref.ID, ref.Ext)

	data, contentType, err := d.client.DownloadImage(ctx, url)
	if err == nil {
		ext := storage.InferExt(ref.Ext, contentType, url)
		name := manager.FileName(ref.ID, index, ext)
		if saveErr := manager.Save(bytes.NewReader(data), name); saveErr != nil {
			err = saveErr
		} else {
			report.Saved++
			report.Extensions[ext]++
		}
	}

	if err != nil {
		err = errs.Newf(errs.ErrorTypeImageDownload, "image %s: %v", ref.ID, err)
		report.Failed = append(report.Failed, ImageError{ID: ref.ID, Err: err})
		d.logger.ErrorWithFields("image download failed", map[string]interface{}{
			"id":    ref.ID,
			"index": index,
			"url":   url,
			"error": err.Error(),
		})
	}

	d.observer.OnImage(index, report.Total, ref.ID, err)
}
