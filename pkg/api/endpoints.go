package api

// Endpoints holds the backend paths, relative to the base URL
type Endpoints struct {
	Login          string `yaml:"login"`
	Register       string `yaml:"register"`
	MyFiles        string `yaml:"my_files"`
	Upload         string `yaml:"upload"`
	DealFile       string `yaml:"deal_file"`
	Folders        string `yaml:"folders"`
	FolderFiles    string `yaml:"folder_files"`
	ShareFiles     string `yaml:"share_files"`
	FileMove       string `yaml:"file_move"`
	BatchOperation string `yaml:"batch_operation"`
}

// DefaultEndpoints returns the paths served by the storage backend
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:          "/api/login",
		Register:       "/api/reg",
		MyFiles:        "/api/myfiles",
		Upload:         "/api/upload",
		DealFile:       "/api/dealfile",
		Folders:        "/api/folders",
		FolderFiles:    "/api/folderfiles",
		ShareFiles:     "/api/sharefiles",
		FileMove:       "/api/filemove",
		BatchOperation: "/api/batchoperation",
	}
}

// WithDefaults fills empty paths from DefaultEndpoints
func (e Endpoints) WithDefaults() Endpoints {
	d := DefaultEndpoints()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&e.Login, d.Login)
	fill(&e.Register, d.Register)
	fill(&e.MyFiles, d.MyFiles)
	fill(&e.Upload, d.Upload)
	fill(&e.DealFile, d.DealFile)
	fill(&e.Folders, d.Folders)
	fill(&e.FolderFiles, d.FolderFiles)
	fill(&e.ShareFiles, d.ShareFiles)
	fill(&e.FileMove, d.FileMove)
	fill(&e.BatchOperation, d.BatchOperation)
	return e
}
