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
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-cloud/blob"
)

// uploader writes output files destined for blob storage to a
// temporary location and uploads them afterwards.
type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is a blob storage
	// path where it should be uploaded to.
	files [][2]string
	err   error
	dir   string
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// the upload method is run.
func (u *uploader) maybeUpload(path string) string {
	if u.err != nil {
		return ""
	}
	if !IsBlob(path) {
		return path
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "wrfvar")
		if u.err != nil {
			return ""
		}
	}
	local := filepath.Join(u.dir, filepath.Base(path))
	u.files = append(u.files, [2]string{local, path})
	return local
}

// upload copies the registered files to blob storage and removes
// the temporary directory.
func (u *uploader) upload(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	if u.dir != "" {
		defer os.RemoveAll(u.dir)
	}
	for _, files := range u.files {
		if err := uploadFile(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, local, dst string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("wrfvarutil: opening file '%s' for upload: %s", local, err)
	}
	defer r.Close()
	url, err := url.Parse(dst)
	if err != nil {
		return fmt.Errorf("wrfvarutil: parsing url '%s' for upload: %s", dst, err)
	}
	bucket, err := OpenBucket(ctx, url.Scheme+"://"+url.Host)
	if err != nil {
		return fmt.Errorf("wrfvarutil: opening bucket to upload file '%s': %s", dst, err)
	}
	w, err := bucket.NewWriter(ctx, strings.TrimPrefix(url.Path, "/"), &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("wrfvarutil: opening writer to upload file '%s': %s", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("wrfvarutil: uploading file '%s' to '%s': %s", local, dst, err)
	}
	// The upload is only complete once the writer is closed.
	if err := w.Close(); err != nil {
		return fmt.Errorf("wrfvarutil: uploading file '%s' to '%s': %s", local, dst, err)
	}
	return nil
}
