package filestore

// Provider names an object storage implementation.
type Provider string

const ProviderMinIO Provider = "minio"

// Config locates the bucket the object cache backend writes to.
type Config struct {
	Provider  Provider `yaml:"provider"`
	Endpoint  string   `yaml:"endpoint"` // host:port, e.g. "localhost:9000"
	AccessKey string   `yaml:"access_key"`
	SecretKey string   `yaml:"secret_key"`
	UseSSL    bool     `yaml:"use_ssl"`
	Region    string   `yaml:"region"` // empty for MinIO

	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"` // prepended to every object key
}

// DefaultConfig returns a local MinIO config writing under cache/ in the
// dbmeta bucket.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    "dbmeta",
		Prefix:    "cache/",
	}
}
