/*
Copyright © 2020 the wrfvar authors.
This file is part of wrfvar.

wrfvar is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

wrfvar is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with wrfvar.  If not, see <http://www.gnu.org/licenses/>.
*/

package wrfvarutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/wrfvar/internal/hash"
	"golang.org/x/net/context/ctxhttp"
)

// DownloadDir is the directory where remote WRF output files are
// stored after they are downloaded. Files are kept between runs so they
// only need to be downloaded once.
var DownloadDir = filepath.Join(os.TempDir(), "wrfvar")

// maxDownloadRetries is the number of times a failed HTTP request is
// retried.
const maxDownloadRetries = 5

// newBackOff returns the retry schedule for HTTP downloads.
var newBackOff = func() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries)
}

var (
	downloadInit  sync.Once
	downloadCache *requestcache.Cache
)

type downloadRequest struct {
	path string
	log  logrus.FieldLogger
}

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or a blob storage location.
// If it is, it downloads the file, unless it has been downloaded
// before, and returns the path to the downloaded file.
// Any other path is returned unchanged.
// Simultaneous requests for the same file only download it once.
func maybeDownload(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	if !isRemote(path) {
		return path, nil
	}
	downloadInit.Do(func() {
		downloadCache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			r := request.(downloadRequest)
			return download(ctx, r.path, r.log)
		}, runtime.GOMAXPROCS(-1),
			requestcache.Deduplicate(), requestcache.Memory(100))
	})
	req := downloadCache.NewRequest(ctx, downloadRequest{path: path, log: log}, path)
	result, err := req.Result()
	if err != nil {
		return path, err
	}
	return result.(string), nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || IsBlob(path)
}

// download copies the remote file at path into DownloadDir, unless
// it is already there.
func download(ctx context.Context, path string, log logrus.FieldLogger) (string, error) {
	fetch := func(w io.Writer) error { return downloadBlob(ctx, path, w) }
	if !IsBlob(path) {
		fetch = func(w io.Writer) error { return downloadHTTP(ctx, path, w, log) }
	}

	u, err := url.Parse(path)
	if err != nil {
		return path, fmt.Errorf("wrfvarutil: parsing download location: %v", err)
	}
	dir := filepath.Join(DownloadDir, hash.Hash(path))
	local := filepath.Join(dir, filepath.Base(u.Path))
	if _, err := os.Stat(local); err == nil {
		log.WithField("file", local).Debugf("using previously downloaded copy of %s", path)
		return local, nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return path, fmt.Errorf("wrfvarutil: failed creating download directory: %v", err)
	}

	// Download to a temporary name so an interrupted download
	// is not mistaken for a complete one.
	partial := local + ".partial"
	w, err := os.Create(partial)
	if err != nil {
		return path, fmt.Errorf("wrfvarutil: failed creating file for download: %v", err)
	}
	log.WithField("url", path).Info("downloading")
	if err := fetch(w); err != nil {
		w.Close()
		os.Remove(partial)
		return path, fmt.Errorf("wrfvarutil: downloading %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		return path, err
	}
	if err := os.Rename(partial, local); err != nil {
		return path, err
	}
	return local, nil
}

// downloadHTTP downloads the file at the specified URL to w,
// retrying when the request fails or the server reports an error.
func downloadHTTP(ctx context.Context, path string, w io.Writer, log logrus.FieldLogger) error {
	var resp *http.Response
	var permanent error
	err := backoff.RetryNotify(
		func() error {
			r, err := ctxhttp.Get(ctx, nil, path)
			if err != nil {
				if ctx.Err() != nil {
					permanent = ctx.Err()
					return nil
				}
				return err
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return fmt.Errorf("server responded %s", r.Status)
			}
			if r.StatusCode != http.StatusOK {
				r.Body.Close()
				permanent = fmt.Errorf("server responded %s", r.Status)
				return nil
			}
			resp = r
			return nil
		},
		newBackOff(),
		func(err error, d time.Duration) {
			log.WithField("url", path).Warnf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return err
	}
	if permanent != nil {
		return permanent
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

// IsBlob returns whether the given filename represents a blob.
// (i.e., if it starts with `gs://`, 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	url, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("wrfvarutil.OpenBucket: %v", err)
	}
	switch url.Scheme {
	case "file":
		return fileblob.NewBucket(url.Hostname())
	case "gs":
		return gsBucket(ctx, url.Hostname())
	case "s3":
		return s3Bucket(ctx, url.Hostname())
	default:
		return nil, fmt.Errorf("wrfvarutil.OpenBucket: invalid provider %s", url.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name)
}

// downloadBlob copies the specified file from blob storage to w.
func downloadBlob(ctx context.Context, path string, w io.Writer) error {
	url, err := url.Parse(path)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, url.Scheme+"://"+url.Host)
	if err != nil {
		return err
	}
	r, err := bucket.NewReader(ctx, strings.TrimPrefix(url.Path, "/"))
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}
