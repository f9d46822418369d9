package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
)

// uploadSettleDelay gives the writer of a freshly created file a moment to
// finish before the decode check runs.
const uploadSettleDelay = 200 * time.Millisecond

// verifyUpload waits for the file to settle, then checks that it decodes as
// an image.
func verifyUpload(path string) error {
	time.Sleep(uploadSettleDelay)
	_, err := imaging.Open(path)
	return err
}

// watchUploads keeps an eye on the upload base dir: proof and receipt
// images are only supposed to arrive through the API, so anything created
// out-of-band that does not decode as an image is flagged in the log for
// the admin to review. Subdirectories created later (bukti/, nota/) are
// added to the watch as they appear.
func watchUploads(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.IsDir() {
			_ = w.Add(filepath.Join(dir, e.Name()))
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) {
					continue
				}
				info, err := os.Stat(ev.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						log.Printf("upload watch: cannot watch %s: %v", ev.Name, err)
					}
					continue
				}
				// decode off the event loop so a burst of new files
				// cannot stall later events behind the settle delay
				go func(name string) {
					if err := verifyUpload(name); err != nil {
						log.Printf("upload watch: %s is not a decodable image: %v", name, err)
					}
				}(ev.Name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("upload watch error: %v", err)
			}
		}
	}()
	return nil
}
