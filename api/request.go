package api

type RunReq struct {
	RunUuid string `json:"run_uuid"`

	RepoUrl string `json:"repo_url"`
	Ref     string `json:"ref"`
	Depth   int    `json:"depth"`

	Runtime Runtime  `json:"runtime"`
	Install Install  `json:"install"`
	CovTest CovTest  `json:"cov_test"`
	Upload  *Upload  `json:"upload"`
	Media   []LfsRef `json:"media"`

	ResSqsUrl string `json:"res_sqs_url"`
}

type Runtime struct {
	// Version is the major.minor interpreter version, e.g. "3.7".
	Version string `json:"version"`
}

type Install struct {
	// Target is the path installed in editable mode, usually ".".
	Target string   `json:"target"`
	Tools  []string `json:"tools"`
}

type CovTest struct {
	CovConfigPath string `json:"cov_config_path"`
	CovScope      string `json:"cov_scope"`
}

type Upload struct {
	Url         string `json:"url"`
	FailOnError bool   `json:"fail_on_error"`
	Verbose     bool   `json:"verbose"`
}

type LfsRef struct {
	// Oid is the sha256 recorded in the pointer file.
	Oid string `json:"oid"`
	// Url overrides the media endpoint for this object if set.
	Url *string `json:"url"`
}
