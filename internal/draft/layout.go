package draft

// Well-known files of a draft directory.
const (
	ContentFile       = "draft_content.json"
	ContentBackupFile = "draft_content.json.bak"
	MetaFile          = "draft_meta_info.json"
	SettingsFile      = "draft_settings"
	CoverFile         = "draft_cover.jpg"
	TemplateTmpFile   = "template.tmp"
	Template2TmpFile  = "template-2.tmp"
)

// DefaultFolders are the subfolders the editor expects in every draft.
var DefaultFolders = []string{
	"common_attachment",
	"matting",
	"qr_upload",
	"Resources",
	"smart_crop",
	"subdraft",
	"adjust_mask",
}

// DefaultFiles are the files the editor expects in every draft.
var DefaultFiles = []string{
	"attachment_editing.json",
	"attachment_pc_common.json",
	"draft.extra",
	"draft_agency_config.json",
	"draft_biz_config.json",
	ContentFile,
	ContentBackupFile,
	CoverFile,
	MetaFile,
	SettingsFile,
	"draft_virtual_store.json",
	"draftMainWindowLayoutConfig.json",
	"key_value.json",
	"performance_opt_info.json",
	TemplateTmpFile,
	Template2TmpFile,
}

// ContentFiles are the timeline-bearing documents kept in lockstep by synchronization.
var ContentFiles = []string{ContentFile, ContentBackupFile}

// identityFiles carry name/id/path keys that are refreshed on creation when present.
var identityFiles = []string{ContentFile, ContentBackupFile, TemplateTmpFile, Template2TmpFile}
