package vault

// Profile is a named set of connection parameters for one storage backend
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Endpoint  string `json:"endpoint"`
	Port      int    `json:"port"`
	UseSSL    bool   `json:"useSSL"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Driver    string `json:"driver,omitempty"` // s3 (default), minio, local, b2, sftp
	CreatedAt int64  `json:"createdAt"`        // epoch milliseconds
	UpdatedAt int64  `json:"updatedAt"`        // epoch milliseconds
}

// ProfileFields holds the user-editable fields of a new profile
type ProfileFields struct {
	Name      string
	Endpoint  string
	Port      int
	UseSSL    bool
	AccessKey string
	SecretKey string
	Driver    string
}

// ProfileUpdate is a partial update. Nil fields keep their previous value.
type ProfileUpdate struct {
	Name      *string
	Endpoint  *string
	Port      *int
	UseSSL    *bool
	AccessKey *string
	SecretKey *string
	Driver    *string
}

// IsEmpty reports whether the update changes no field
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Endpoint == nil && u.Port == nil && u.UseSSL == nil &&
		u.AccessKey == nil && u.SecretKey == nil && u.Driver == nil
}

func (u ProfileUpdate) apply(p *Profile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Endpoint != nil {
		p.Endpoint = *u.Endpoint
	}
	if u.Port != nil {
		p.Port = *u.Port
	}
	if u.UseSSL != nil {
		p.UseSSL = *u.UseSSL
	}
	if u.AccessKey != nil {
		p.AccessKey = *u.AccessKey
	}
	if u.SecretKey != nil {
		p.SecretKey = *u.SecretKey
	}
	if u.Driver != nil {
		p.Driver = *u.Driver
	}
}

// MaskedSecret returns the secret key with everything but the last four characters hidden
func (p Profile) MaskedSecret() string {
	const visible = 4
	if len(p.SecretKey) <= visible {
		return "****"
	}
	return "****" + p.SecretKey[len(p.SecretKey)-visible:]
}
