package config

// configSchema constrains CUE configuration files. Durations are given in
// nanoseconds, as CUE has no duration type.
const configSchema = `
#Config: {
	sources?: [...string & != ""]
	recursive?: bool
	pattern?: string & != ""
	unknown_keys?: "reject" | "skip" | "strict" | "lenient"
	policies?: [...string & != ""]

	database?: {
		path?: string & != ""
		max_open_conns?: int & >=0
		max_idle_conns?: int & >=0
		conn_max_lifetime?: int & >=0
	}

	s3?: {
		region?: string & != ""
		endpoint?: string
		use_path_style?: bool
		anonymous?: bool
	}

	ssh?: {
		auth_method?: "password" | "key" | "agent"
		password?: string
		private_key_path?: string
		private_key_passphrase?: string
		known_hosts_path?: string
		strict_host_key_checking?: bool
		connection_timeout?: int & >=0
	}

	watch?: {
		debounce?: int & >=0
		metrics_addr?: string
	}

	telemetry?: {
		service_name?: string
		service_version?: string
		environment?: string
		logging?: {
			level?: "trace" | "debug" | "info" | "warn" | "error" | "fatal"
			format?: "console" | "json"
			output?: string
			enable_caller?: bool
			time_format?: "unix" | "unixms" | "rfc3339"
		}
		tracing?: {
			enabled?: bool
			exporter?: "otlp" | "stdout" | "none"
			endpoint?: string
			sampling_rate?: number & >=0 & <=1
			export_timeout?: int & >=0
			headers?: {[string]: string}
			insecure?: bool
		}
		metrics?: {
			enabled?: bool
			listen_address?: string
			path?: string
			namespace?: string
			histogram_buckets?: [...number]
		}
		events?: enabled?: bool
	}
}
`
