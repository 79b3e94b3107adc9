package api

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

// maxUploadMemory is the multipart buffer kept in memory; larger parts
// spill to temporary files.
const maxUploadMemory = 32 << 20

func uploadMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, http.StatusBadRequest, "expected multipart form with a file field", "BAD_REQUEST")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		var duration *float64
		if d := r.FormValue("duration"); d != "" {
			v, err := strconv.ParseFloat(d, 64)
			if err != nil || v <= 0 {
				WriteError(w, http.StatusBadRequest, "duration must be a positive number", "BAD_REQUEST")
				return
			}
			duration = &v
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			if byExt := mime.TypeByExtension(filepath.Ext(header.Filename)); byExt != "" {
				mimeType = byExt
			}
		}
		if !acceptedMedia(mimeType) {
			WriteError(w, http.StatusUnsupportedMediaType, "only video, image and audio files are accepted", "UNSUPPORTED_MEDIA")
			return
		}

		ctx := r.Context()
		user, err := withUsage(ctx, cfg)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if err := cfg.Gate.Authorize(user, entitlement.ActionUploadMedia, entitlement.Context{RequestedBytes: header.Size}); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		asset, err := cfg.Blobs.UploadBlob(ctx, cloud.BlobUpload{
			OwnerID:   user.ID,
			ProjectID: r.FormValue("project_id"),
			FileName:  header.Filename,
			MimeType:  mimeType,
			Size:      header.Size,
			Duration:  duration,
			Body:      file,
		})
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if asset.UserID == "" {
			asset.UserID = user.ID
		}
		if asset.Duration == nil && asset.Kind != project.AssetImage && cfg.Prober != nil && filepath.IsAbs(asset.Path) {
			if res, err := cfg.Prober.Probe(ctx, asset.Path); err != nil {
				cfg.Logger.Warn("media probe failed", "asset_id", asset.ID, "error", err)
			} else {
				asset.Duration = &res.Duration
			}
		}
		if err := cfg.Repo.SaveMediaAsset(ctx, asset); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		cfg.Logger.Info("media uploaded", "asset_id", asset.ID, "user_id", user.ID, "kind", asset.Kind, "bytes", asset.FileSize)
		WriteJSON(w, http.StatusCreated, MediaResponse{Asset: asset})
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		assets, err := cfg.Repo.FetchMediaAssets(r.Context(), user.ID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		if assets == nil {
			assets = []project.MediaAsset{}
		}
		WriteJSON(w, http.StatusOK, MediaListResponse{Assets: assets})
	}
}

func acceptedMedia(mimeType string) bool {
	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case "video", "image", "audio":
		return true
	}
	return false
}
