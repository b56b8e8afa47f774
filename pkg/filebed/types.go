package filebed

import (
	"errors"
	"fmt"
	"io"
)

// Endpoint paths, relative to the service base URL.
const (
	PingPath                 = "ping"
	AddURLPath               = "api/addUrl"
	AddFilePath              = "api/addFile"
	RemoveFilePath           = "api/removeFile"
	GetFileCompleteInfoPath  = "api/getFileCompleteInfo"
	ListFileSimpleInfoPath   = "api/listFileSimpleInfo"
	ListFileCompleteInfoPath = "api/listFileCompleteInfo"
	ListLastFileInfoPath     = "api/listLastFileInfo"
	PushSyncFilePath         = "api/pushSyncFile"
	PullSyncFilePath         = "api/pullSyncFile"

	// FilePathPrefix serves raw file contents: /file/<path>.
	FilePathPrefix = "/file"
)

// FileSimpleInfo is the lightweight listing entry.
type FileSimpleInfo struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	IsFile bool   `json:"is_file"`
	URL    string `json:"url"`
}

// FileCompleteInfo adds size and checksum data. For directories Size and
// Count aggregate every file below it and MD5 is empty.
type FileCompleteInfo struct {
	FileSimpleInfo
	Size  int64  `json:"size"`
	Count int32  `json:"count"`
	MD5   string `json:"md5"`
}

// URLAddRequest registers a file sourced from a URL.
type URLAddRequest struct {
	Path string `json:"path"`
	URL  string `json:"url"`
	Raw  bool   `json:"raw,omitempty"`
}

// FileAddRequest uploads file bytes to Path.
type FileAddRequest struct {
	Path     string
	FileName string
	Data     io.Reader
	Raw      bool
}

// FileRemoveRequest removes Path.
type FileRemoveRequest struct {
	Path string `json:"path"`
}

// PathQuery is the query of every path-based GET endpoint.
type PathQuery struct {
	Path string `url:"path,omitempty"`
}

// SyncFileRequest asks the service to push to, or pull from, the peer
// instance at Address authenticated with Secret. An empty Path syncs the
// whole tree.
type SyncFileRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`
	Path    string `json:"path,omitempty"`
}

// AddFileOptions tunes AddFile.
type AddFileOptions struct {
	// FileName of the multipart part; defaults to the base of the path.
	FileName string
	// Raw stores the bytes as uploaded, skipping server-side conversion.
	Raw bool
}

type URLAddResponse struct {
	Info *FileSimpleInfo `json:"info"`
}

type FileAddResponse struct {
	Info *FileSimpleInfo `json:"info"`
}

type FileRemoveResponse struct {
	Info *FileSimpleInfo `json:"info"`
}

type FileCompleteInfoGetResponse struct {
	Info *FileCompleteInfo `json:"info"`
}

type FileSimpleInfoListResponse struct {
	Infos []FileSimpleInfo `json:"infos"`
}

type FileCompleteInfoListResponse struct {
	Infos []FileCompleteInfo `json:"infos"`
}

type LastFileInfoListResponse struct {
	Infos []FileSimpleInfo `json:"infos"`
}

type SyncFileResponse struct{}

// ValidationError reports a required argument that was missing or empty.
// No request is sent when it is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("filebed: %s is empty", e.Field)
}

var (
	// ErrDeclined is returned when the user declines a confirmation.
	ErrDeclined = errors.New("filebed: operation declined by user")

	// ErrNotFound indicates the requested file is missing.
	ErrNotFound = errors.New("filebed: not found")
)
